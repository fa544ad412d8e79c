package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/simonvc/propledger/internal/ledger"
)

var ruleCmd = &cobra.Command{
	Use:   "rule",
	Short: "Manage import classification rules",
}

var (
	ruleName     string
	ruleField    string
	ruleType     string
	ruleValue    string
	ruleCategory string
	ruleProperty string
	rulePriority int
)

var ruleCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a classification rule",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := newClient().CreateRule(context.Background(), &ledger.ClassificationRule{
			Name:       ruleName,
			MatchField: ledger.MatchField(ruleField),
			MatchType:  ledger.MatchType(ruleType),
			MatchValue: ruleValue,
			CategoryID: ruleCategory,
			PropertyID: ruleProperty,
			Priority:   rulePriority,
			IsActive:   true,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Rule created: %s (%s %s %q)\n", r.ID, r.MatchField, r.MatchType, r.MatchValue)
		return nil
	},
}

var ruleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List rules in evaluation order",
	RunE: func(cmd *cobra.Command, args []string) error {
		rules, err := newClient().ListRules(context.Background())
		if err != nil {
			return err
		}
		if len(rules) == 0 {
			fmt.Println("No rules found.")
			return nil
		}

		fmt.Printf("%-36s %4s %-20s %-12s %-24s %-36s %s\n", "ID", "PRIO", "NAME", "FIELD", "MATCH", "CATEGORY", "ACTIVE")
		fmt.Printf("%-36s %4s %-20s %-12s %-24s %-36s %s\n", "----", "----", "----", "-----", "-----", "--------", "------")
		for _, r := range rules {
			match := fmt.Sprintf("%s %q", r.MatchType, r.MatchValue)
			fmt.Printf("%-36s %4d %-20s %-12s %-24s %-36s %v\n",
				r.ID, r.Priority, truncate(r.Name, 20), r.MatchField, truncate(match, 24), r.CategoryID, r.IsActive)
		}
		return nil
	},
}

var ruleToggleCmd = &cobra.Command{
	Use:   "toggle [id]",
	Short: "Enable or disable a rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newClient()
		r, err := c.GetRule(context.Background(), args[0])
		if err != nil {
			return err
		}
		active := !r.IsActive
		r, err = c.UpdateRule(context.Background(), args[0], ledger.RulePatch{IsActive: &active})
		if err != nil {
			return err
		}
		fmt.Printf("Rule %s active: %v\n", r.ID, r.IsActive)
		return nil
	},
}

var ruleDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newClient().DeleteRule(context.Background(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Rule deleted: %s\n", args[0])
		return nil
	},
}

var (
	ruleTestDescription string
	ruleTestReference   string
)

var ruleTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Show which rule would categorise a statement row",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := newClient().Classify(context.Background(), ruleTestDescription, ruleTestReference)
		if err != nil {
			return err
		}
		if r == nil {
			fmt.Println("No rule matches.")
			return nil
		}
		fmt.Printf("Matched rule %s (%s): category %s\n", r.ID, r.Name, r.CategoryID)
		return nil
	},
}

func init() {
	f := ruleCreateCmd.Flags()
	f.StringVar(&ruleName, "name", "", "Rule name")
	f.StringVar(&ruleField, "field", string(ledger.MatchFieldDescription), "description or reference")
	f.StringVar(&ruleType, "match", string(ledger.MatchContains), "contains, starts_with or exact")
	f.StringVar(&ruleValue, "value", "", "Text to match, case-insensitive")
	f.StringVar(&ruleCategory, "category", "", "Account ID assigned on match")
	f.StringVar(&ruleProperty, "property", "", "Property ID assigned on match")
	f.IntVar(&rulePriority, "priority", 100, "Lower runs first")
	ruleCreateCmd.MarkFlagRequired("value")
	ruleCreateCmd.MarkFlagRequired("category")

	tf := ruleTestCmd.Flags()
	tf.StringVar(&ruleTestDescription, "description", "", "Row description")
	tf.StringVar(&ruleTestReference, "reference", "", "Row reference")

	ruleCmd.AddCommand(ruleCreateCmd)
	ruleCmd.AddCommand(ruleTestCmd)
	ruleCmd.AddCommand(ruleListCmd)
	ruleCmd.AddCommand(ruleToggleCmd)
	ruleCmd.AddCommand(ruleDeleteCmd)
	rootCmd.AddCommand(ruleCmd)
}
