package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kic113/site/internal/content"
	"github.com/kic113/site/internal/site"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Exports the site as static HTML",
	Long: `The build command renders every page (one per blog post) into the
configured output directory (default './public/') and copies the static
assets next to them. The output directory is emptied first. Theme toggling
and contact submission need 'serve'; the export uses the default theme.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog, err := content.Load(contentSource(appConfig.ContentDir))
		if err != nil {
			return fmt.Errorf("failed to load content: %w", err)
		}
		renderer, err := site.NewRenderer(appConfig.SiteTitle, appConfig.BaseURL)
		if err != nil {
			return err
		}
		return site.Export(appConfig.OutputDir, renderer, catalog, appLog)
	},
}

func init() {
	buildCmd.Flags().String("out", "public", "output directory")
	buildCmd.Flags().String("content", "", "content directory to export instead of the embedded copy")
	rootCmd.AddCommand(buildCmd)
}
