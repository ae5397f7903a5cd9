// Package all registers every known binding. Importing it lets the govcp
// registry create any of them by name.
package all

import (
	_ "github.com/mlsorensen/govcp/pkg/bindings/gatt"
	_ "github.com/mlsorensen/govcp/pkg/bindings/mock"
	_ "github.com/mlsorensen/govcp/pkg/bindings/ws"
)
