// Package commands defines the catalog CLI.
//
// Commands
//
//   - list         Load the product list and print every state transition
//   - show <id>    Load one product and print every state transition
//
// # Implementation
//
// The root command builds the product service (remote API client or the
// demo catalog), the repository and the state store before any subcommand
// runs. Subcommands watch a store slot, issue one command and print states
// until a terminal one arrives. An Error state makes the process exit with a
// non-zero status.
package commands
