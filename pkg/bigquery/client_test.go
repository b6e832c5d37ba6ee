package bigquery

import (
	"context"
	"testing"

	"github.com/marcaromas/marcaromas-backend/pkg/config"
)

func TestConfiguredTablesTrimsAndSkipsEmpty(t *testing.T) {
	cfg := config.BigQueryConfig{
		OrderEventsTable: " order_events ",
		BillingTable:     "",
	}

	tables := configuredTables(cfg)

	if len(tables) != 1 {
		t.Fatalf("expected 1 table, got %d", len(tables))
	}
	if tables[0] != "order_events" {
		t.Fatalf("expected order_events, got %s", tables[0])
	}
}

func TestCredentialOptionsPrefersInlineJSON(t *testing.T) {
	gcp := config.GCPConfig{
		CredentialsJSON:        `{"dummy": "value"}`,
		ApplicationCredentials: "/tmp/creds",
	}

	if opts := credentialOptions(gcp); len(opts) != 1 {
		t.Fatalf("expected 1 option, got %d", len(opts))
	}
}

func TestCredentialOptionsWithFile(t *testing.T) {
	gcp := config.GCPConfig{ApplicationCredentials: "/tmp/creds"}

	if opts := credentialOptions(gcp); len(opts) != 1 {
		t.Fatalf("expected 1 option when using a credentials file, got %d", len(opts))
	}
}

func TestCredentialOptionsDefaultsToADC(t *testing.T) {
	if opts := credentialOptions(config.GCPConfig{}); len(opts) != 0 {
		t.Fatalf("expected 0 options without explicit credentials, got %d", len(opts))
	}
}

func TestNilClientGuards(t *testing.T) {
	var c *Client

	if err := c.Ping(context.Background()); err != errClientNotInitialized {
		t.Fatalf("expected not-initialized error from Ping, got %v", err)
	}
	if err := c.InsertRows(context.Background(), "billing_events", []any{struct{}{}}); err != errClientNotInitialized {
		t.Fatalf("expected not-initialized error from InsertRows, got %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("expected nil from Close on nil client, got %v", err)
	}
}
