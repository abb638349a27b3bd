package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/flockhq/flock/internal/client"
	"github.com/flockhq/flock/internal/frontend"
	"github.com/spf13/cobra"
)

var personCmd = &cobra.Command{
	Use:   "person",
	Short: "Manage people",
}

var personAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a person interactively",
	Long: `Prompts for full name, address and WhatsApp number, creates the person on
the server and prints its id. An empty answer aborts without creating anything.`,
	Args: cobra.NoArgs,
	RunE: runPersonAdd,
}

var personListCmd = &cobra.Command{
	Use:   "list",
	Short: "List people",
	Args:  cobra.NoArgs,
	RunE:  runPersonList,
}

func init() {
	personCmd.AddCommand(personAddCmd)
	personCmd.AddCommand(personListCmd)
}

func runPersonAdd(cmd *cobra.Command, args []string) error {
	c, closeConn, err := dialRemote()
	if err != nil {
		return err
	}
	defer closeConn()

	prompter := frontend.NewPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
	_, err = frontend.AddPerson(cmd.Context(), c.Persons(), prompter)
	return err
}

func runPersonList(cmd *cobra.Command, args []string) error {
	c, closeConn, err := dialRemote()
	if err != nil {
		return err
	}
	defer closeConn()

	people, err := c.Persons().List(cmd.Context(), client.Filter{})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tFULL NAME\tWHATSAPP")
	for _, p := range people {
		fmt.Fprintf(w, "%s\t%s\t%s\n", p.ID, p.FullName, p.WhatsappE164)
	}
	return w.Flush()
}
