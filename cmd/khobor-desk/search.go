package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Adda-Baaj/khobor-desk/internal/app"
	"github.com/Adda-Baaj/khobor-desk/internal/domain"
	"github.com/Adda-Baaj/khobor-desk/pkg/newsapi"
)

func newSearchCmd(c *cli) *cobra.Command {
	var count, page int

	cmd := &cobra.Command{
		Use:   "search <keyword>",
		Short: "Fetch news for a keyword and list the headlines",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := app.NewBackend(c.cfg, c.log)
			if err != nil {
				return err
			}

			keyword := strings.Join(args, " ")
			res, err := backend.FetchNews(cmd.Context(), newsapi.NewsQuery{
				Keyword:       keyword,
				ArticlesCount: count,
				ArticlesPage:  page,
			})
			if errors.Is(err, newsapi.ErrEmptyKeyword) {
				return errors.New("Please enter a keyword to search")
			}
			if err != nil {
				return errors.New(newsapi.Message(err, "Failed to fetch news articles"))
			}
			printArticles(cmd.OutOrStdout(), strings.TrimSpace(keyword), res.Articles)
			return nil
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", newsapi.DefaultArticlesCount, "number of articles to fetch (1-100)")
	cmd.Flags().IntVar(&page, "page", 1, "result page")
	return cmd
}

func printArticles(w io.Writer, keyword string, articles []domain.Article) {
	if len(articles) == 0 {
		fmt.Fprintf(w, "No articles found for %q\nTry a different keyword\n", keyword)
		return
	}

	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("Found %d articles", len(articles))))
	for _, a := range articles {
		fmt.Fprintln(w)
		fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("#%d %s", a.ID, a.Title)))
		fmt.Fprintln(w, metaStyle.Render(a.SourceName()+" · "+a.PublishedOn(domain.CardDateLayout)))
		if preview := a.Preview(); preview != "" {
			fmt.Fprintln(w, blockStyle.Render(preview))
		}
		if tags := a.TopTags(domain.DefaultTagView); len(tags) > 0 {
			fmt.Fprintln(w, renderTags(tags))
		}
	}
}
