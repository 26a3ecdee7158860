package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kic113/site/internal/content"
	"github.com/kic113/site/internal/relay"
	"github.com/kic113/site/internal/server"
	"github.com/kic113/site/internal/site"
)

var watchContent bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves the site over HTTP",
	Long: `The serve command renders every page on request and handles the contact
form and theme toggle. Content is taken from the embedded copy unless
--content names a directory; --watch reloads that directory on change.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if watchContent && appConfig.ContentDir == "" {
			return errors.New("--watch needs a content directory (--content or contentDir)")
		}

		store, err := content.NewStore(contentSource(appConfig.ContentDir))
		if err != nil {
			return fmt.Errorf("failed to load content: %w", err)
		}
		renderer, err := site.NewRenderer(appConfig.SiteTitle, appConfig.BaseURL)
		if err != nil {
			return err
		}

		rc := appConfig.Relay
		if !rc.Configured() {
			appLog.Warn("email relay credentials are missing; contact submissions will fail")
		}
		sender := relay.New(relay.Options{
			Endpoint:      rc.Endpoint,
			ServiceID:     rc.ServiceID,
			TemplateID:    rc.TemplateID,
			PublicKey:     rc.PublicKey,
			Timeout:       rc.Timeout,
			RatePerMinute: rc.RatePerMinute,
			Burst:         rc.Burst,
			Logger:        appLog,
		})

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if watchContent {
			go func() {
				if err := content.Watch(ctx, appConfig.ContentDir, store, appLog, content.DefaultDebounce); err != nil {
					appLog.Error(err, "content watcher stopped")
				}
			}()
		}

		return server.New(server.Options{
			Store:    store,
			Renderer: renderer,
			Sender:   sender,
			Logger:   appLog,
		}).Run(ctx, appConfig.Addr)
	},
}

// contentSource is the embedded content unless dir is set.
func contentSource(dir string) fs.FS {
	if dir == "" {
		return content.Default()
	}
	return os.DirFS(dir)
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "address to listen on")
	serveCmd.Flags().String("content", "", "content directory to serve instead of the embedded copy")
	serveCmd.Flags().BoolVarP(&watchContent, "watch", "w", false, "reload content when files change")
	rootCmd.AddCommand(serveCmd)
}
