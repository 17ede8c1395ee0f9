package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kaustavray/mathbot/expr"
)

// NewEvalCmd creates the "eval" subcommand: a one-shot evaluation of the
// same restricted grammar the bot answers in chat.
func NewEvalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "eval <expression>",
		Short: "Evaluate a math expression and print the result",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runEval,
	}
}

func runEval(cmd *cobra.Command, args []string) error {
	input := strings.Join(args, " ")

	value, err := expr.Evaluate(input)
	if err != nil {
		return exitError(exitInvalid, "invalid expression: %v", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Result: %s\n", value.String())
	return nil
}
