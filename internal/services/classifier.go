package services

import (
	"strings"

	"nyc-local-events-pipeline/internal/models"
)

// categoryKeywords pairs a category with the substrings that signal it. The
// table is ordered: the first category with any hit wins, so more specific
// categories must appear before broad catch-alls.
type categoryKeywords struct {
	Category string
	Keywords []string
}

// classifierTable is the ordered keyword lexicon for fallback classification.
// "Free Food" must stay above "Food & Drink", and niche categories above the
// broad entertainment ones, or the tie-break collapses.
var classifierTable = []categoryKeywords{
	{models.CategoryFreeFood, []string{"free food", "free pizza", "free samples", "free tasting", "complimentary food", "free breakfast", "free lunch"}},
	{models.CategoryComedy, []string{"comedy", "stand-up", "standup", "improv", "open mic comedy"}},
	{models.CategoryTechnology, []string{"tech", "hackathon", "coding", "programming", "startup", "ai ", "developer", "software"}},
	{models.CategoryHeritage, []string{"heritage", "historical", "landmark tour", "immigrant", "ancestry", "cultural history", "preservation"}},
	{models.CategoryLiterature, []string{"book reading", "poetry", "author talk", "book club", "literary", "book launch"}},
	{models.CategoryFilm, []string{"film screening", "movie night", "documentary", "cinema", "short film"}},
	{models.CategoryDance, []string{"dance", "ballet", "salsa night", "swing dancing", "tango"}},
	{models.CategoryTheater, []string{"broadway", "theatre", "theater", "musical", "play ", "off-broadway"}},
	{models.CategoryMusic, []string{"concert", "jazz", "live music", "band", "dj ", "orchestra", "symphony", "album release", "open mic"}},
	{models.CategoryArt, []string{"art", "gallery", "exhibit", "painting", "sculpture", "museum", "installation"}},
	{models.CategoryMarkets, []string{"flea market", "farmers market", "pop-up market", "craft fair", "vintage market", "bazaar"}},
	{models.CategoryFoodDrink, []string{"food", "tasting", "brunch", "dinner", "restaurant", "wine", "beer", "cocktail", "happy hour", "brewery"}},
	{models.CategoryNightlife, []string{"nightlife", "club night", "rooftop party", "rave", "late night"}},
	{models.CategoryFitness, []string{"yoga", "pilates", "workout", "bootcamp", "spin class", "crossfit"}},
	{models.CategorySports, []string{"game", "match", "tournament", "marathon", "basketball", "soccer", "baseball", "hockey", "tennis", "pickleball"}},
	{models.CategoryOutdoors, []string{"hike", "kayak", "picnic", "birdwatching", "botanical", "outdoor", "garden tour", "bike ride"}},
	{models.CategoryWellness, []string{"meditation", "wellness", "mindfulness", "sound bath", "breathwork"}},
	{models.CategoryFamily, []string{"kids", "family", "children", "storytime", "puppet", "all ages"}},
	{models.CategoryEducation, []string{"workshop", "class", "lecture", "seminar", "course", "learn"}},
	{models.CategoryBusiness, []string{"networking", "career", "entrepreneurship", "job fair", "conference"}},
	{models.CategoryFashion, []string{"fashion", "runway", "trunk show", "sample sale"}},
	{models.CategoryHoliday, []string{"halloween", "christmas", "hanukkah", "thanksgiving", "new year", "holiday market", "tree lighting"}},
	{models.CategoryCommunity, []string{"volunteer", "fundraiser", "block party", "town hall", "community board", "cleanup", "meetup"}},
}

// Classifier performs single-label keyword classification over the closed
// category enumeration. Used only on the rule-based fallback path.
type Classifier struct {
	table []categoryKeywords
}

// NewClassifier creates a classifier backed by the static keyword table
func NewClassifier() *Classifier {
	return &Classifier{table: classifierTable}
}

// Classify returns the first category whose keyword set has a substring hit
// in the lowercased text, or "Other" when nothing matches.
func (c *Classifier) Classify(text string) string {
	lowered := strings.ToLower(text)

	for _, entry := range c.table {
		for _, keyword := range entry.Keywords {
			if strings.Contains(lowered, keyword) {
				return entry.Category
			}
		}
	}

	return models.CategoryOther
}
