package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Adda-Baaj/khobor-desk/internal/app"
	"github.com/Adda-Baaj/khobor-desk/internal/domain"
	"github.com/Adda-Baaj/khobor-desk/pkg/newsapi"
)

func newProcessCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "process <article-id>",
		Short: "Run AI processing on an article and print the summary, tags and caption",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid article id %q", args[0])
			}

			backend, err := app.NewBackend(c.cfg, c.log)
			if err != nil {
				return err
			}

			article, err := backend.ProcessArticleAI(cmd.Context(), id)
			if err != nil {
				msg := newsapi.Message(err, "Failed to process article with AI.")
				if strings.Contains(msg, "Database not available") {
					msg = "Database is required for AI processing. Please ensure database is connected."
				}
				return errors.New(msg)
			}
			printProcessed(cmd.OutOrStdout(), article)
			return nil
		},
	}
}

func printProcessed(w io.Writer, a domain.Article) {
	fmt.Fprintln(w, titleStyle.Render(a.Title))
	fmt.Fprintln(w, metaStyle.Render(a.SourceName()+" · "+a.PublishedOn(domain.DetailDateLayout)))

	fmt.Fprintln(w)
	fmt.Fprintln(w, sectionStyle.Render("AI Summary"))
	fmt.Fprintln(w, blockStyle.Render(a.AISummary))

	if len(a.AITags) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, sectionStyle.Render("Tags"))
		fmt.Fprintln(w, renderTags(a.AITags))
	}
	if a.AICaption != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, sectionStyle.Render("Social Media Caption"))
		fmt.Fprintln(w, blockStyle.Render(a.AICaption))
	}
}
