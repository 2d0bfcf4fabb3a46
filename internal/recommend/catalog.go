package recommend

import (
	"context"
	"fmt"
	"hash/fnv"
	"sort"
	"strings"

	"github.com/imWayneWY/movie-agent-web-app-sub000/internal/models"
)

// CatalogProvider recommends from a built-in movie catalog. It needs no
// upstream service, which makes it the default for development and the
// fallback when no agent is configured. Results are deterministic for a
// given request.
type CatalogProvider struct {
	catalog []models.Movie
}

// NewCatalogProvider creates a provider over the built-in catalog.
func NewCatalogProvider() *CatalogProvider {
	return &CatalogProvider{catalog: builtinCatalog}
}

// Recommend filters the catalog by the request and emits narration followed
// by up to MaxResults movies.
func (p *CatalogProvider) Recommend(ctx context.Context, req *models.RecommendRequest, out Emitter) error {
	candidates := p.filter(req)

	// Deterministic but request-dependent ordering: mood-salted hash, so
	// different moods surface different titles.
	seed := moodSeed(req.Mood)
	sort.Slice(candidates, func(i, j int) bool {
		hi, hj := movieRank(seed, candidates[i]), movieRank(seed, candidates[j])
		if hi == hj {
			return candidates[i].ID < candidates[j].ID
		}
		return hi < hj
	})

	limit := req.MaxResults
	if limit <= 0 || limit > len(candidates) {
		limit = len(candidates)
	}

	if len(candidates) == 0 {
		return out.Text(ctx, "I couldn't find anything in the catalog matching those filters. "+
			"Try loosening the genre or platform constraints.")
	}

	intro := fmt.Sprintf("Based on your mood, here are %d picks. ", limit)
	if err := out.Text(ctx, intro); err != nil {
		return err
	}

	for i, movie := range candidates[:limit] {
		if err := ctx.Err(); err != nil {
			return err
		}
		movie.Reason = reasonFor(movie)
		if err := out.Movie(ctx, movie); err != nil {
			return err
		}
		if err := out.Text(ctx, fmt.Sprintf("%d. %s (%d): %s. ", i+1, movie.Title, movie.Year, movie.Reason)); err != nil {
			return err
		}
	}
	return nil
}

// filter keeps catalog entries matching every provided constraint. Empty
// constraint lists match everything.
func (p *CatalogProvider) filter(req *models.RecommendRequest) []models.Movie {
	var out []models.Movie
	for _, movie := range p.catalog {
		if !matchesAny(req.Genres, movie.Genres) {
			continue
		}
		if !matchesAny(req.Platforms, movie.Platforms) {
			continue
		}
		if !matchesDecades(req.Decades, movie.Year) {
			continue
		}
		out = append(out, movie)
	}
	return out
}

// matchesAny reports whether any wanted value appears in have. An empty
// wanted list matches.
func matchesAny(wanted, have []string) bool {
	if len(wanted) == 0 {
		return true
	}
	for _, w := range wanted {
		for _, h := range have {
			if strings.EqualFold(w, h) {
				return true
			}
		}
	}
	return false
}

// matchesDecades reports whether year falls in any wanted decade, where a
// decade is written like "1990s".
func matchesDecades(wanted []string, year int) bool {
	if len(wanted) == 0 {
		return true
	}
	decade := fmt.Sprintf("%ds", year/10*10)
	for _, w := range wanted {
		if strings.EqualFold(w, decade) {
			return true
		}
	}
	return false
}

func moodSeed(mood string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(strings.ToLower(strings.TrimSpace(mood))))
	return h.Sum64()
}

func movieRank(seed uint64, movie models.Movie) uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%d:%d", seed, movie.ID)
	return h.Sum64()
}

func reasonFor(movie models.Movie) string {
	if movie.Reason != "" {
		return movie.Reason
	}
	if len(movie.Genres) > 0 {
		return fmt.Sprintf("a strong %s pick for your mood", movie.Genres[0])
	}
	return "matches your mood"
}

// builtinCatalog is a small curated set spanning the filterable genres,
// platforms and decades.
var builtinCatalog = []models.Movie{
	{ID: 1, Title: "Before Sunrise", Year: 1995, Genres: []string{"romance", "drama"}, Platforms: []string{"max", "prime"}, Rating: 8.1, Reason: "two strangers, one night in Vienna"},
	{ID: 2, Title: "Heat", Year: 1995, Genres: []string{"crime", "thriller"}, Platforms: []string{"netflix", "prime"}, Rating: 8.3, Reason: "the definitive cops-and-robbers epic"},
	{ID: 3, Title: "Spirited Away", Year: 2001, Genres: []string{"animation", "fantasy"}, Platforms: []string{"max"}, Rating: 8.6, Reason: "a gentle, strange world to get lost in"},
	{ID: 4, Title: "Arrival", Year: 2016, Genres: []string{"sci-fi", "drama"}, Platforms: []string{"netflix", "hulu"}, Rating: 7.9, Reason: "first contact as a meditation on time"},
	{ID: 5, Title: "Paddington 2", Year: 2017, Genres: []string{"comedy", "family"}, Platforms: []string{"netflix"}, Rating: 7.8, Reason: "pure warmth, start to finish"},
	{ID: 6, Title: "The Thing", Year: 1982, Genres: []string{"horror", "sci-fi"}, Platforms: []string{"peacock", "prime"}, Rating: 8.2, Reason: "paranoia in the Antarctic, practical effects at their peak"},
	{ID: 7, Title: "Whiplash", Year: 2014, Genres: []string{"drama"}, Platforms: []string{"netflix", "prime"}, Rating: 8.5, Reason: "tension you can feel in your hands"},
	{ID: 8, Title: "The Grand Budapest Hotel", Year: 2014, Genres: []string{"comedy", "drama"}, Platforms: []string{"disney+", "hulu"}, Rating: 8.1, Reason: "a pastel caper with a melancholy heart"},
	{ID: 9, Title: "Alien", Year: 1979, Genres: []string{"horror", "sci-fi"}, Platforms: []string{"hulu", "prime"}, Rating: 8.5, Reason: "the haunted house in space"},
	{ID: 10, Title: "La La Land", Year: 2016, Genres: []string{"romance", "musical"}, Platforms: []string{"netflix"}, Rating: 8.0, Reason: "bittersweet and gorgeous"},
	{ID: 11, Title: "Mad Max: Fury Road", Year: 2015, Genres: []string{"action", "sci-fi"}, Platforms: []string{"max"}, Rating: 8.1, Reason: "two hours of perfectly choreographed momentum"},
	{ID: 12, Title: "Parasite", Year: 2019, Genres: []string{"thriller", "drama"}, Platforms: []string{"hulu"}, Rating: 8.5, Reason: "a class thriller that keeps shifting under you"},
	{ID: 13, Title: "My Neighbor Totoro", Year: 1988, Genres: []string{"animation", "family"}, Platforms: []string{"max"}, Rating: 8.1, Reason: "comfort in movie form"},
	{ID: 14, Title: "The Social Network", Year: 2010, Genres: []string{"drama"}, Platforms: []string{"netflix", "prime"}, Rating: 7.8, Reason: "sharp, fast and cold in the best way"},
	{ID: 15, Title: "Knives Out", Year: 2019, Genres: []string{"mystery", "comedy"}, Platforms: []string{"prime"}, Rating: 7.9, Reason: "a whodunit with teeth"},
	{ID: 16, Title: "Blade Runner 2049", Year: 2017, Genres: []string{"sci-fi", "thriller"}, Platforms: []string{"netflix", "max"}, Rating: 8.0, Reason: "slow, vast and beautiful"},
	{ID: 17, Title: "Little Women", Year: 2019, Genres: []string{"drama", "romance"}, Platforms: []string{"hulu"}, Rating: 7.8, Reason: "warm, structurally daring adaptation"},
	{ID: 18, Title: "The Fugitive", Year: 1993, Genres: []string{"action", "thriller"}, Platforms: []string{"max", "peacock"}, Rating: 7.8, Reason: "the gold standard of the chase movie"},
	{ID: 19, Title: "Coco", Year: 2017, Genres: []string{"animation", "family"}, Platforms: []string{"disney+"}, Rating: 8.4, Reason: "a big-hearted movie about memory"},
	{ID: 20, Title: "No Country for Old Men", Year: 2007, Genres: []string{"crime", "thriller"}, Platforms: []string{"netflix", "prime"}, Rating: 8.2, Reason: "dread, precision and a coin toss"},
}
