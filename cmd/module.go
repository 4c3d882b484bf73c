package cmd

import (
	"fmt"
	"reflect"
	"runtime/debug"
	"slices"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/hyperledger-labs/yui-bridge-relayer/config"
	"github.com/spf13/cobra"
)

func modulesCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "modules",
		Short: "show an info about the chain modules",
		RunE:  noCommand,
	}

	cmd.AddCommand(
		showModulesCmd(ctx),
	)

	return cmd
}

func showModulesCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Shows the modules included in the relayer and the chain types they register",
		RunE: func(cmd *cobra.Command, args []string) error {
			modules := make([]string, len(ctx.Modules))
			bi, ok := debug.ReadBuildInfo()
			if !ok {
				return errors.New("could not read build info")
			}

			for i, m := range ctx.Modules {
				info, err := retrieveModuleInfo(bi, m)
				if err != nil {
					return err
				}

				modules[i] = m.Name() + " " + info
			}
			sort.Strings(modules)
			for _, module := range modules {
				fmt.Fprintf(cmd.OutOrStdout(), "%v\n", module)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "chain types: %s\n", strings.Join(ctx.Registry.Types(), ", "))
			return nil
		},
	}
	return cmd
}

func retrieveModuleInfo(info *debug.BuildInfo, m config.ModuleI) (string, error) {
	if info == nil {
		return "", errors.New("build info is unavailable")
	}

	pkgPath := reflect.TypeOf(m).PkgPath()
	if strings.HasPrefix(pkgPath, info.Main.Path) {
		return info.Main.Path + " " + info.Main.Version, nil
	}

	i := slices.IndexFunc(info.Deps, func(dm *debug.Module) bool {
		return strings.HasPrefix(pkgPath, dm.Path)
	})
	if i == -1 {
		return "", errors.Newf("could not find module info for %s", m.Name())
	}

	return info.Deps[i].Path + " " + info.Deps[i].Version, nil
}
