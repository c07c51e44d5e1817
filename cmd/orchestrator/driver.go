package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/scaiflow/orchestrator/pkg/migration"
)

// driverConn stands in for the concrete Snowflake/Cortex connection, which
// §1 Non-goals places out of scope for this repo. It satisfies
// upstream.Conn, llmclient.SQLRunner, and migration.SQLExecutor structurally
// so every package that depends on those narrow interfaces wires up, without
// any package needing to import a driver. A production deployment replaces
// newDriverConn with a real driver and changes nothing else.
type driverConn struct {
	account string
	user    string
}

func newDriverConn(account, user string) *driverConn {
	slog.Warn("using the placeholder upstream driver; no real Snowflake/Cortex connection was made",
		"account", account, "user", user)
	return &driverConn{account: account, user: user}
}

func (c *driverConn) Ping() error { return nil }

func (c *driverConn) Close() error { return nil }

// RunScalar satisfies llmclient.SQLRunner. The placeholder never calls an
// actual model; every chat/self-heal/supervisor completion returns an error
// until a real driver is wired in.
func (c *driverConn) RunScalar(ctx context.Context, sql string) (any, error) {
	return nil, fmt.Errorf("driverConn: no upstream connection configured for account %q", c.account)
}

// ExecuteStatement satisfies migration.SQLExecutor.
func (c *driverConn) ExecuteStatement(ctx context.Context, statement string) (migration.StatementResult, error) {
	return migration.StatementResult{}, fmt.Errorf("driverConn: no upstream connection configured for account %q", c.account)
}
