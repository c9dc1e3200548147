package cli

import "github.com/spf13/cobra"

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for npym.

To load completions:

Bash:
  $ source <(npym completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ npym completion bash > /etc/bash_completion.d/npym
  # macOS:
  $ npym completion bash > $(brew --prefix)/etc/bash_completion.d/npym

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ npym completion zsh > "${fpath[1]}/_npym"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ npym completion fish | source

  # To load completions for each session, execute once:
  $ npym completion fish > ~/.config/fish/completions/npym.fish

PowerShell:
  PS> npym completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> npym completion powershell > npym.ps1
  # and source this file from your PowerShell profile.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, out := cmd.Root(), cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return root.GenBashCompletionV2(out, true)
			case "zsh":
				return root.GenZshCompletion(out)
			case "fish":
				return root.GenFishCompletion(out, true)
			case "powershell":
				return root.GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}

	return cmd
}
