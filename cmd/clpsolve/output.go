package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gitrdm/gokanclp/internal/problem"
)

func writeResults(w io.Writer, format string, results []*problem.Result) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if len(results) == 1 {
			return enc.Encode(results[0])
		}
		return enc.Encode(results)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		if len(results) == 1 {
			return enc.Encode(results[0])
		}
		return enc.Encode(results)
	default:
		for _, res := range results {
			writeText(w, res)
		}
		return nil
	}
}

func status(res *problem.Result) string {
	switch {
	case !res.Feasible:
		return "infeasible"
	case !res.Complete:
		return "partial"
	}
	return "complete"
}

func writeText(w io.Writer, res *problem.Result) {
	fmt.Fprintf(w, "%s (%s): %s, %d solution(s) in %s\n",
		res.Name, res.Kind, status(res), len(res.Solutions), res.Duration.Round(time.Microsecond))
	for i, sol := range res.Solutions {
		parts := make([]string, len(sol))
		for j, v := range sol {
			if v.Min == v.Max {
				parts[j] = fmt.Sprintf("%s=%d", v.Name, v.Min)
			} else {
				parts[j] = fmt.Sprintf("%s=[%d,%d]", v.Name, v.Min, v.Max)
			}
		}
		fmt.Fprintf(w, "  #%d %s\n", i+1, strings.Join(parts, " "))
	}
	for _, g := range res.Groups {
		fmt.Fprintf(w, "  cycle group: %s\n", strings.Join(g, " "))
	}
	if len(res.Profile) > 0 {
		fmt.Fprintf(w, "  peak %d", res.Peak)
		for _, s := range res.Overloads {
			fmt.Fprintf(w, " overload %s", s)
		}
		fmt.Fprintln(w)
		for _, s := range res.Profile {
			fmt.Fprintf(w, "  %s\n", s)
		}
	}
	fmt.Fprintf(w, "  %s\n", res.Stats)
}
