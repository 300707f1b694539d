// Command curve_preview prints the generated level threshold curve for a
// given base jump and difficulty percentage. Useful when tuning the economy
// before writing override rows.
package main

import (
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dojoclub/points-api/internal/service"
)

func main() {
	baseJump := flag.Int("base", 50, "points required for the first level jump")
	difficulty := flag.Float64("difficulty", 8, "compounding difficulty percentage")
	maxLevel := flag.Int("max", 99, "highest level to generate")
	flag.Parse()

	curve := service.GenerateCurve(*baseJump, *difficulty, *maxLevel)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "LEVEL\tMIN LIFETIME POINTS\tJUMP")
	prev := 0
	for _, t := range curve {
		fmt.Fprintf(w, "%d\t%d\t%d\n", t.Level, t.MinLifetimePoints, t.MinLifetimePoints-prev)
		prev = t.MinLifetimePoints
	}
	w.Flush()
}
