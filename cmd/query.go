package main

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/account-intel/internal/engine"
	"github.com/sells-group/account-intel/internal/intent"
	"github.com/sells-group/account-intel/internal/prospect"
)

var (
	recommendThreshold float64
	similarLimit       int
	adoptionSegment    string
	prospectSize       string
	prospectGeography  string
)

// withEngine loads config-driven data into an engine and hands it to fn.
func withEngine(cmd *cobra.Command, fn func(*engine.Engine) error) error {
	if err := cfg.Validate("cli"); err != nil {
		return err
	}
	env, err := initEnv(cmd.Context(), nil, true)
	if err != nil {
		return err
	}
	defer env.Close()
	return fn(env.Engine)
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <name>",
	Short: "Resolve a company name to a client record",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := strings.Join(args, " ")
		return withEngine(cmd, func(e *engine.Engine) error {
			m, ok, err := e.Resolve(name)
			if err != nil {
				return err
			}
			if !ok {
				sugg, err := e.Suggest(name, 3)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "no client matches %q\n", name)
				for _, s := range sugg {
					fmt.Fprintf(cmd.ErrOrStderr(), "  did you mean %s (%.0f%%)?\n", s.Client.Name, s.Confidence)
				}
				return nil
			}
			return printJSON(cmd.OutOrStdout(), m)
		})
	},
}

var recommendCmd = &cobra.Command{
	Use:   "recommend <client or segment>",
	Short: "Rank cross-sell candidates for a client or segment",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		return withEngine(cmd, func(e *engine.Engine) error {
			rec, err := e.GetRecommendations(query, recommendThreshold)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rec)
		})
	},
}

var similarCmd = &cobra.Command{
	Use:   "similar <client>",
	Short: "List the clients most similar to a client",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := strings.Join(args, " ")
		return withEngine(cmd, func(e *engine.Engine) error {
			sim, err := e.GetSimilar(name, similarLimit)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), sim)
		})
	},
}

var adoptionCmd = &cobra.Command{
	Use:   "adoption",
	Short: "Show product adoption by segment",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, func(e *engine.Engine) error {
			profiles, err := e.ComputeAdoption()
			if err != nil {
				return err
			}
			if adoptionSegment == "" {
				return printJSON(cmd.OutOrStdout(), profiles)
			}
			for seg, p := range profiles {
				if strings.EqualFold(seg, adoptionSegment) {
					return printJSON(cmd.OutOrStdout(), p)
				}
			}
			return eris.Errorf("segment %q has no adoption profile", adoptionSegment)
		})
	},
}

var prospectCmd = &cobra.Command{
	Use:   "prospect <segment or description>",
	Short: "Profile a prospect from segment adoption statistics",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := prospect.Request{
			SegmentOrDescription: strings.Join(args, " "),
			Size:                 prospectSize,
			Geography:            prospectGeography,
		}
		return withEngine(cmd, func(e *engine.Engine) error {
			p, err := e.ProfileProspect(req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), p)
		})
	},
}

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a free-text question by parsing its intent",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		parser := initParser()
		if parser == nil {
			return eris.New("anthropic key is required (ACCOUNT_INTEL_ANTHROPIC_KEY)")
		}
		q, err := parser.Parse(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		return withEngine(cmd, func(e *engine.Engine) error {
			res, err := answer(e, q)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{"parsed": q, "result": res})
		})
	},
}

// answer runs the operation a parsed question asks for.
func answer(e *engine.Engine, q intent.Query) (any, error) {
	switch q.Intent {
	case intent.Recommend:
		return e.GetRecommendations(q.Company, engine.DefaultThreshold)
	case intent.Similar:
		return e.GetSimilar(q.Company, similarLimit)
	case intent.Resolve:
		m, ok, err := e.Resolve(q.Company)
		if err != nil || !ok {
			return nil, err
		}
		return m, nil
	case intent.Adoption:
		return e.ComputeAdoption()
	case intent.Prospect:
		desc := q.Segment
		if desc == "" {
			desc = q.Company
		}
		return e.ProfileProspect(prospect.Request{SegmentOrDescription: desc})
	default:
		return nil, eris.Errorf("could not tell what %q asks for", q.Company)
	}
}

func init() {
	recommendCmd.Flags().Float64Var(&recommendThreshold, "threshold", engine.DefaultThreshold, "minimum segment adoption rate in [0,1] (default from config)")
	similarCmd.Flags().IntVar(&similarLimit, "limit", 5, "maximum similar clients to return")
	askCmd.Flags().IntVar(&similarLimit, "limit", 5, "maximum similar clients for similarity questions")
	adoptionCmd.Flags().StringVar(&adoptionSegment, "segment", "", "show one segment only")
	prospectCmd.Flags().StringVar(&prospectSize, "size", "", "prospect company size")
	prospectCmd.Flags().StringVar(&prospectGeography, "geography", "", "prospect geography")

	rootCmd.AddCommand(resolveCmd, recommendCmd, similarCmd, adoptionCmd, prospectCmd, askCmd)
}
