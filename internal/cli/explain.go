package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/subwatch/internal/config"
	"github.com/ppiankov/subwatch/internal/match"
	"github.com/ppiankov/subwatch/internal/source"
)

var (
	explainSource string
	explainTitle  string
	explainBody   string
	explainFlair  string
)

var explainCmd = &cobra.Command{
	Use:   "explain",
	Short: "Show how a post would be matched against a configured subreddit",
	Example: `  subwatch explain --source ShinyPokemon --title "[Gen 9] Shiny Giveaway"
  subwatch explain --source PokemonZA --title "Trading" --flair "Shiny Giveaway"`,
	RunE: explainAction,
}

func init() {
	explainCmd.Flags().StringVar(&explainSource, "source", "", "configured subreddit name")
	explainCmd.Flags().StringVar(&explainTitle, "title", "", "post title")
	explainCmd.Flags().StringVar(&explainBody, "body", "", "post body")
	explainCmd.Flags().StringVar(&explainFlair, "flair", "", "post flair")
	_ = explainCmd.MarkFlagRequired("source")
}

func explainAction(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(configDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	criteria, ok := cfg.Source(explainSource)
	if !ok {
		return fmt.Errorf("source %q is not configured", explainSource)
	}

	post := source.Post{
		Subreddit: criteria.Source,
		Title:     explainTitle,
		Body:      explainBody,
		Flair:     explainFlair,
	}
	verdict := match.Explain(post, criteria)

	fmt.Printf("r/%s: %s\n", criteria.Source, criteria.Describe())
	fmt.Printf("  Title: %q\n", post.Title)
	if post.Body != "" {
		fmt.Printf("  Body:  %q\n", post.Body)
	}
	if post.Flair != "" {
		fmt.Printf("  Flair: %q\n", post.Flair)
	}
	fmt.Println()
	for _, r := range verdict.Reasons {
		fmt.Printf("  %s\n", r)
	}
	fmt.Println()
	if verdict.Matched {
		fmt.Println("Result: MATCH")
	} else {
		fmt.Println("Result: no match")
	}
	return nil
}
