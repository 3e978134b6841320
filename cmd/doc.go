// Package cmd implements the command-line interface for agendarouter.
//
// This package provides the following commands:
//   - serve: Start the MCP server (stdio or streamable HTTP)
//   - classify: Route queries from the command line, or run the smoke queries
//   - generate-docs: Generate markdown documentation for all MCP tools
//   - version: Display version information
//
// Every command accepts --debug and --config. Router settings resolve as
// flags, then environment variables, then the config file.
package cmd
