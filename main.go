// Command terramcp runs the Terra workflow-monitoring MCP server.
package main

import "terramcp/cmd"

func main() {
	cmd.Execute()
}
