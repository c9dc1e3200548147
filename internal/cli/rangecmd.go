package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/npym/pkg/semver"
)

// rangeCommand creates the range command for evaluating range expressions.
func (c *CLI) rangeCommand() *cobra.Command {
	var includePrerelease bool

	cmd := &cobra.Command{
		Use:   "range <expression> [versions...]",
		Short: "Show how npym reads an npm range and which versions it matches",
		Long: `Show how npym reads an npm range and which versions it matches.

Prints the canonical comparator form, the PEP 440 specifier used in wheel
metadata and, for each given version, whether it satisfies the range.

Examples:
  npym range "^1.2.3"
  npym range "1.x || >=2.5.0 <3" 1.4.0 2.4.9 2.6.0`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts []semver.Option
			if includePrerelease {
				opts = append(opts, semver.IncludePrerelease())
			}
			spec, err := semver.ParseSpec(args[0], opts...)
			if err != nil {
				return err
			}
			return printRange(spec, args[1:])
		},
	}

	cmd.Flags().BoolVar(&includePrerelease, "include-prerelease", false, "let prereleases match any range containing them")
	return cmd
}

func printRange(spec *semver.Spec, raw []string) error {
	printKeyValue("range", spec.Raw())
	printKeyValue("kind", spec.Kind().String())
	printKeyValue("canonical", spec.String())
	if pep, err := spec.PEP440(); err == nil {
		printKeyValue("pep440", pep)
	} else {
		printKeyValue("pep440", StyleWarning.Render(err.Error()))
	}
	if len(raw) == 0 {
		return nil
	}

	versions := make([]semver.Version, 0, len(raw))
	fmt.Println()
	for _, s := range raw {
		v, err := semver.ParseVersion(s)
		if err != nil {
			return err
		}
		versions = append(versions, v)
		if spec.Matches(v) {
			fmt.Println("  " + styleMatch.Render(iconSuccess) + " " + v.String())
		} else {
			fmt.Println("  " + styleNoMatch.Render(iconError) + " " + StyleDim.Render(v.String()))
		}
	}
	fmt.Println()
	if best, ok := spec.MaxSatisfying(versions); ok {
		printKeyValue("max", StyleHighlight.Render(best.String()))
	} else {
		printWarning("no version satisfies %s", spec.Raw())
	}
	return nil
}
