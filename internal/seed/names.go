package seed

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

var (
	firstNames = []string{
		"Ada", "Brooke", "Carlos", "Dana", "Elena", "Farid", "Grace", "Hector",
		"Imani", "Jonas", "Keiko", "Liam", "Maya", "Nikhil", "Olivia", "Pavel",
		"Quinn", "Rosa", "Samuel", "Tara", "Uma", "Victor", "Wen", "Yusuf",
	}
	lastNames = []string{
		"Anderson", "Baker", "Chen", "Diaz", "Eriksen", "Fischer", "Garcia",
		"Hoffman", "Iverson", "Jensen", "Kowalski", "Larson", "Moreno", "Nguyen",
		"Olson", "Patel", "Quist", "Rasmussen", "Schultz", "Thompson", "Walker",
	}
	words = []string{
		"prairie", "ridge", "creek", "meadow", "bluff", "hollow", "orchard",
		"willow", "cedar", "basin", "terrace", "spring", "oak", "summit",
		"valley", "marsh", "grove", "canyon", "harbor", "field",
	}
)

// nameGen draws fake names from rng. Emails and words are unique per
// generator.
type nameGen struct {
	rng   *rand.Rand
	used  map[string]bool
	count int
}

func newNameGen(rng *rand.Rand) *nameGen {
	return &nameGen{rng: rng, used: make(map[string]bool)}
}

func (g *nameGen) pick(list []string) string { return list[g.rng.IntN(len(list))] }

func (g *nameGen) firstName() string { return g.pick(firstNames) }
func (g *nameGen) lastName() string  { return g.pick(lastNames) }

func (g *nameGen) initial() string {
	return string(rune('A' + g.rng.IntN(26)))
}

func (g *nameGen) email(first, last string) string {
	g.count++
	return fmt.Sprintf("%s.%s.%d@example.org", strings.ToLower(first), strings.ToLower(last), g.count)
}

func (g *nameGen) phone() string {
	return fmt.Sprintf("(%03d) 555-%04d", 200+g.rng.IntN(800), g.rng.IntN(10000))
}

// word returns a word not returned before, suffixing a number once the list
// is exhausted.
func (g *nameGen) word() string {
	for range len(words) {
		w := g.pick(words)
		if !g.used[w] {
			g.used[w] = true
			return w
		}
	}
	for i := 2; ; i++ {
		w := fmt.Sprintf("%s%d", g.pick(words), i)
		if !g.used[w] {
			g.used[w] = true
			return w
		}
	}
}

func (g *nameGen) latitude() float64  { return g.rng.Float64()*180 - 90 }
func (g *nameGen) longitude() float64 { return g.rng.Float64()*360 - 180 }
