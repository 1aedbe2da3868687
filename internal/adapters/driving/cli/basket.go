package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var basketCmd = &cobra.Command{
	Use:   "basket",
	Short: "Edit the selection of sources for the next question",
}

var basketToggleCmd = &cobra.Command{
	Use:   "toggle [document-id...]",
	Short: "Add documents to the basket, or remove them if already selected",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runBasketToggle,
}

var basketClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Empty the basket",
	Args:  cobra.NoArgs,
	RunE:  runBasketClear,
}

var basketShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the basket and selection flags",
	Args:  cobra.NoArgs,
	RunE:  runBasketShow,
}

var basketAutoClearCmd = &cobra.Command{
	Use:       "autoclear on|off",
	Short:     "Empty the basket after each successful answer",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"on", "off"},
	RunE:      runBasketAutoClear,
}

var basketArmCmd = &cobra.Command{
	Use:   "arm",
	Short: "Mark the basket as ready for a question",
	Args:  cobra.NoArgs,
	RunE:  runBasketArm,
}

func init() {
	basketCmd.AddCommand(basketToggleCmd)
	basketCmd.AddCommand(basketClearCmd)
	basketCmd.AddCommand(basketShowCmd)
	basketCmd.AddCommand(basketAutoClearCmd)
	basketCmd.AddCommand(basketArmCmd)
	rootCmd.AddCommand(basketCmd)
}

func runBasketToggle(cmd *cobra.Command, args []string) error {
	if err := requireServices(); err != nil {
		return err
	}
	for _, arg := range args {
		id, err := parseID(arg)
		if err != nil {
			return err
		}
		added, err := selectionService.Toggle(cmd.Context(), operatorID, id)
		if err != nil {
			return fmt.Errorf("toggle %d: %w", id, err)
		}
		if added {
			cmd.Printf("%s #%d\n", selectedStyle.Render("added"), id)
		} else {
			cmd.Printf("%s #%d\n", mutedStyle.Render("removed"), id)
		}
	}
	return nil
}

func runBasketClear(cmd *cobra.Command, _ []string) error {
	if err := requireServices(); err != nil {
		return err
	}
	if err := selectionService.Clear(cmd.Context(), operatorID); err != nil {
		return err
	}
	cmd.Println("Basket cleared.")
	return nil
}

func runBasketShow(cmd *cobra.Command, _ []string) error {
	if err := requireServices(); err != nil {
		return err
	}
	ctx := cmd.Context()
	state, err := selectionService.State(ctx, operatorID)
	if err != nil {
		return err
	}

	cmd.Println(titleStyle.Render("Basket"))
	if len(state.Basket) == 0 {
		cmd.Println("  (empty)")
	} else {
		ids := make([]string, len(state.Basket))
		for i, id := range state.Basket {
			ids[i] = strconv.FormatInt(id, 10)
		}
		cmd.Printf("  Sources: %s\n", strings.Join(ids, ", "))
	}
	cmd.Printf("  Scope: %s\n", state.Scope)
	cmd.Printf("  Auto-clear: %s\n", onOff(state.AutoClear))
	cmd.Printf("  Armed: %s\n", onOff(state.Armed))
	return nil
}

func runBasketAutoClear(cmd *cobra.Command, args []string) error {
	if err := requireServices(); err != nil {
		return err
	}
	on, err := parseOnOff(args[0])
	if err != nil {
		return err
	}
	if err := selectionService.SetAutoClear(cmd.Context(), operatorID, on); err != nil {
		return err
	}
	cmd.Printf("Auto-clear %s.\n", onOff(on))
	return nil
}

func runBasketArm(cmd *cobra.Command, _ []string) error {
	if err := requireServices(); err != nil {
		return err
	}
	if err := selectionService.Arm(cmd.Context(), operatorID); err != nil {
		return err
	}
	cmd.Println("Armed. Send a question with 'mnemo ask'.")
	return nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(s), "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid document id %q", s)
	}
	return id, nil
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", s)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
