package cli

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

var connectorCmd = &cobra.Command{
	Use:   "connector",
	Short: "Manage connectors",
}

var connectorAddCmd = &cobra.Command{
	Use:   "add [provider]",
	Short: "Register a connector",
	Long: `Registers a connector for a provider (google-drive, dropbox, manual-upload,
web-scrape). Provider settings are passed with --set key=value.

Credentials are referenced, never stored:
  --credential env:DRIVE_TOKEN      token read from an environment variable
  --credential file:/run/token      token read from a file`,
	Args: cobra.ExactArgs(1),
	RunE: runConnectorAdd,
}

var connectorListCmd = &cobra.Command{
	Use:   "list",
	Short: "List connectors",
	RunE:  runConnectorList,
}

var connectorRetireCmd = &cobra.Command{
	Use:   "retire [connector-id]",
	Short: "Retire a connector",
	Long:  `Retires a connector. Its documents are kept; it is never synced again.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runConnectorRetire,
}

var addFlags struct {
	id         string
	name       string
	owner      string
	visibility string
	scopeID    string
	credential string
	interval   time.Duration
	settings   map[string]string
}

func init() {
	f := connectorAddCmd.Flags()
	f.StringVar(&addFlags.id, "id", "", "connector id (generated when empty)")
	f.StringVar(&addFlags.name, "name", "", "display name")
	f.StringVar(&addFlags.owner, "owner", "", "owning principal")
	f.StringVar(&addFlags.visibility, "visibility", string(domain.VisibilityPrivate), "private, team or organization")
	f.StringVar(&addFlags.scopeID, "scope-id", "", "team or organization id")
	f.StringVar(&addFlags.credential, "credential", "", "credential handle")
	f.DurationVar(&addFlags.interval, "interval", 0, "refresh interval; zero means manual only")
	f.StringToStringVar(&addFlags.settings, "set", nil, "provider setting key=value")
	_ = connectorAddCmd.MarkFlagRequired("owner")

	connectorCmd.AddCommand(connectorAddCmd)
	connectorCmd.AddCommand(connectorListCmd)
	connectorCmd.AddCommand(connectorRetireCmd)
	rootCmd.AddCommand(connectorCmd)
}

func runConnectorAdd(cmd *cobra.Command, args []string) error {
	svc, err := requireServices()
	if err != nil {
		return err
	}

	c := domain.Connector{
		ID:           addFlags.id,
		Provider:     domain.ProviderType(args[0]),
		Name:         addFlags.name,
		OwnerID:      addFlags.owner,
		Visibility:   domain.Visibility{Scope: domain.VisibilityScope(addFlags.visibility), ScopeID: addFlags.scopeID},
		CredentialID: addFlags.credential,
		Config:       map[string]string{},
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	for k, v := range addFlags.settings {
		c.Config[k] = v
	}
	if addFlags.interval > 0 {
		interval := addFlags.interval
		c.RefreshInterval = &interval
	}

	if err := svc.Connectors.Register(cmd.Context(), c); err != nil {
		return fmt.Errorf("register connector: %w", err)
	}
	cmd.Printf("Registered %s connector %s\n", c.Provider, c.ID)
	return nil
}

func runConnectorList(cmd *cobra.Command, _ []string) error {
	svc, err := requireServices()
	if err != nil {
		return err
	}
	list, err := svc.Connectors.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("list connectors: %w", err)
	}
	if len(list) == 0 {
		cmd.Println("No connectors configured.")
		return nil
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPROVIDER\tSTATUS\tLAST SYNC\tINTERVAL")
	for _, c := range list {
		lastSync := "never"
		if c.LastSyncAt != nil {
			lastSync = c.LastSyncAt.Format(time.RFC3339)
		}
		interval := "manual"
		if c.RefreshInterval != nil {
			interval = c.RefreshInterval.String()
		}
		status := string(c.Status)
		if c.IsRetired() {
			status = "retired"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", c.ID, c.Provider, status, lastSync, interval)
	}
	return w.Flush()
}

func runConnectorRetire(cmd *cobra.Command, args []string) error {
	svc, err := requireServices()
	if err != nil {
		return err
	}
	if err := svc.Connectors.Retire(cmd.Context(), strings.TrimSpace(args[0])); err != nil {
		return fmt.Errorf("retire connector: %w", err)
	}
	cmd.Printf("Retired connector %s\n", args[0])
	return nil
}
