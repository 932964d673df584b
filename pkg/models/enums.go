package models

// Closed enum sets for Preferences fields (spec §6). The HTTP layer
// validates submitted values against these before a Preferences record is
// persisted; the core itself treats Preferences as opaque once stored.
var (
	ArtStyles = []string{
		"Traditional", "Modern", "Minimalist", "Detailed", "Cartoon",
		"Realistic", "Chibi", "Dark", "Colorful", "Black and White",
	}

	TargetAudiences = []string{
		"Children", "Teens", "Young Adults", "Adults", "All Ages",
	}

	ContentRatings = []string{"G", "PG", "PG-13", "R"}

	// Genres is the 16-value allowlist a submitted genres set is validated
	// against (spec §6 "the 16 values listed in C4's allowlist").
	Genres = []string{
		"Action", "Adventure", "Comedy", "Drama", "Fantasy", "Horror",
		"Mystery", "Romance", "Sci-Fi", "Slice of Life", "Sports",
		"Supernatural", "Thriller", "Historical", "Mecha", "Psychological",
	}
)
