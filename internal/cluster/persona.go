package cluster

// Persona labeling is a fixed prototype table rather than learned state: each
// persona is a named point in the behavioral feature space, and a centroid
// takes the label of its nearest prototype. Table order breaks distance ties,
// so labeling is deterministic and testable in isolation.

type personaPrototype struct {
	label       string
	description string
	point       []float64 // canonical 11-dimension behavioral order
}

var personaPrototypes = []personaPrototype{
	{
		label:       "Mainstream Pop Lovers",
		description: "You love mainstream hits and popular tracks. Your taste aligns with current trends.",
		point:       []float64{0.80, 0.20, 0.30, 0.90, 0.70, 0.70, 0.60, 0.50, 0.20, 0.00, 0.10},
	},
	{
		label:       "Indie Explorers",
		description: "You're an indie explorer who discovers hidden gems and underground artists.",
		point:       []float64{0.30, 0.90, 0.80, 0.30, 0.50, 0.50, 0.40, 0.50, 0.50, 0.20, 0.10},
	},
	{
		label:       "Genre Diverse Listeners",
		description: "You have incredibly diverse taste, enjoying music across many genres.",
		point:       []float64{0.40, 0.70, 1.00, 0.50, 0.60, 0.60, 0.50, 0.50, 0.50, 0.10, 0.10},
	},
	{
		label:       "Classic Music Fans",
		description: "You appreciate classic and timeless music, preferring established artists.",
		point:       []float64{0.70, 0.30, 0.40, 0.60, 0.30, 0.30, 0.20, 0.45, 0.80, 0.60, 0.05},
	},
	{
		label:       "Niche Music Enthusiasts",
		description: "You have unique, niche taste in music that sets you apart from the mainstream.",
		point:       []float64{0.50, 0.80, 0.60, 0.10, 0.40, 0.40, 0.30, 0.50, 0.40, 0.30, 0.10},
	},
}

// personaFor labels a centroid by its nearest persona prototype.
func personaFor(centroid []float64) (label, description string) {
	best := personaPrototypes[0]
	bestDist := euclidean(centroid, best.point)
	for _, p := range personaPrototypes[1:] {
		if d := euclidean(centroid, p.point); d < bestDist {
			best, bestDist = p, d
		}
	}
	return best.label, best.description
}
