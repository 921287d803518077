// Package commands implementa os comandos CLI do PlanClaw usando cobra.
package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCmd cria o comando raiz do CLI com todos os subcomandos registrados.
func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "planclaw",
		Short: "PlanClaw - Sandboxed workspaces and tools for AI agents",
		Long: `PlanClaw gives AI agents jailed plan workspaces with file tools,
recursive search, and sandboxed shell execution. Every path an agent
touches is confined to its plan directory.

Examples:
  planclaw serve
  planclaw call read_file '{"path":"notes.md"}'
  planclaw find '*.go' --plan plan-a1b2c3d4
  planclaw audit --limit 20`,
		Version: version,
	}

	// Registra subcomandos.
	rootCmd.AddCommand(
		newServeCmd(),
		newCallCmd(),
		newToolsCmd(),
		newPlanCmd(),
		newFindCmd(),
		newAuditCmd(),
	)

	// Flags globais.
	rootCmd.PersistentFlags().StringP("config", "c", "", "caminho para o arquivo de configuração")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "habilita logs detalhados")

	return rootCmd
}
