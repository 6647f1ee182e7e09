package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/feynlab/feynlab/internal/code"
)

var codeCmd = &cobra.Command{
	Use:   "code",
	Short: "Inspect portable session codes",
}

var codeInspectCmd = &cobra.Command{
	Use:   "inspect [code]",
	Short: "Decode a portable session code and print its contents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		state, err := code.Decode(args[0])
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(state)
	},
}

var codeVerifyCmd = &cobra.Command{
	Use:   "verify [code]",
	Short: "Check whether a portable session code is well-formed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		state, err := code.Decode(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("ok: concept %q, %d/%d fields approved\n",
			state.Concept, len(state.ApprovedFields()), len(state.Fields))
		return nil
	},
}

func init() {
	codeCmd.AddCommand(codeInspectCmd)
	codeCmd.AddCommand(codeVerifyCmd)
}
