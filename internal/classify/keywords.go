package classify

import (
	"context"
	"strings"
	"unicode"

	"github.com/hyperjump/pagesift/internal/models"
)

// lexicon lists cue words per category. Words are lowercase and matched
// against whole tokens.
var lexicon = map[models.Category][]string{
	"Arts & Entertainment":    {"movie", "film", "music", "concert", "album", "actor", "actress", "theater", "theatre", "celebrity", "art", "painting", "museum", "tv", "television", "comedy", "festival"},
	"Autos & Vehicles":        {"car", "cars", "vehicle", "vehicles", "truck", "engine", "motorcycle", "sedan", "suv", "dealership", "tire", "tyres", "automotive", "horsepower", "mileage"},
	"Beauty & Fitness":        {"beauty", "makeup", "cosmetics", "skincare", "hair", "fitness", "workout", "gym", "yoga", "nail", "fragrance", "spa", "diet"},
	"Books & Literature":      {"book", "books", "novel", "author", "poetry", "poem", "literature", "fiction", "publisher", "chapter", "library", "ebook"},
	"Business & Industrial":   {"business", "industrial", "manufacturing", "company", "companies", "supply", "logistics", "enterprise", "b2b", "factory", "industry", "marketing", "corporate"},
	"Computers & Electronics": {"computer", "computers", "software", "hardware", "laptop", "programming", "code", "developer", "cpu", "gpu", "electronics", "linux", "windows", "server", "database", "golang"},
	"Finance":                 {"finance", "bank", "banking", "stock", "stocks", "investment", "investing", "loan", "mortgage", "credit", "insurance", "tax", "market", "trading", "crypto", "interest"},
	"Food & Drink":            {"food", "recipe", "recipes", "cooking", "restaurant", "drink", "wine", "beer", "coffee", "dinner", "baking", "cuisine", "chef", "meal"},
	"Games":                   {"game", "games", "gaming", "gamer", "console", "playstation", "xbox", "nintendo", "puzzle", "esports", "multiplayer", "chess"},
	"Health":                  {"health", "medical", "medicine", "doctor", "hospital", "disease", "symptoms", "treatment", "patient", "nutrition", "therapy", "vaccine", "clinic"},
	"Hobbies & Leisure":       {"hobby", "hobbies", "craft", "crafts", "knitting", "photography", "fishing", "camping", "outdoors", "collecting", "diy", "leisure"},
	"Home & Garden":           {"home", "garden", "gardening", "furniture", "kitchen", "interior", "decor", "plants", "lawn", "renovation", "bedroom", "household"},
	"Internet & Telecom":      {"internet", "broadband", "wifi", "telecom", "mobile", "phone", "email", "hosting", "network", "isp", "5g", "web"},
	"Jobs & Education":        {"job", "jobs", "career", "resume", "hiring", "education", "school", "university", "course", "courses", "student", "students", "teacher", "learning", "degree"},
	"Law & Government":        {"law", "legal", "court", "government", "policy", "attorney", "lawyer", "legislation", "regulation", "election", "military", "police", "rights"},
	"News":                    {"news", "breaking", "headline", "headlines", "report", "reporter", "journalism", "press", "today", "latest", "update"},
	"Online Communities":      {"forum", "community", "social", "blog", "reddit", "dating", "chat", "members", "profile", "followers", "posts"},
	"People & Society":        {"family", "parenting", "religion", "culture", "society", "relationships", "wedding", "kids", "children", "charity", "volunteer"},
	"Pets & Animals":          {"pet", "pets", "dog", "dogs", "cat", "cats", "puppy", "animal", "animals", "wildlife", "veterinary", "bird", "horse"},
	"Real Estate":             {"real", "estate", "property", "properties", "apartment", "rent", "rental", "realtor", "housing", "listing", "listings", "condo", "lease"},
	"Reference":               {"dictionary", "encyclopedia", "wiki", "reference", "definition", "glossary", "directory", "maps", "translation", "thesaurus"},
	"Science":                 {"science", "scientific", "research", "physics", "chemistry", "biology", "astronomy", "experiment", "laboratory", "theory", "scientists", "mathematics"},
	"Shopping":                {"shop", "shopping", "buy", "sale", "discount", "deal", "deals", "price", "cart", "checkout", "store", "order", "coupon", "shipping"},
	"Sports":                  {"sport", "sports", "football", "soccer", "basketball", "baseball", "tennis", "golf", "match", "team", "league", "player", "score", "championship", "olympics"},
	"Travel & Transportation": {"travel", "hotel", "hotels", "flight", "flights", "airline", "vacation", "tourism", "destination", "train", "airport", "booking", "trip", "cruise"},
	"World Localities":        {"city", "country", "region", "province", "village", "europe", "asia", "africa", "america", "local", "capital", "population"},
}

// KeywordModel scores each label by how many text tokens appear in its cue
// word list. It needs no model files and is fully deterministic.
type KeywordModel struct {
	index map[string][]int
}

// NewKeywordModel builds the token → label index for Categories.
func NewKeywordModel() *KeywordModel {
	index := make(map[string][]int)
	for i, c := range Categories {
		for _, w := range lexicon[c] {
			index[w] = append(index[w], i)
		}
	}
	return &KeywordModel{index: index}
}

// Scores counts cue-word hits per label. Labels outside Categories score zero.
func (m *KeywordModel) Scores(ctx context.Context, text string, labels []models.Category) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	counts := make([]float64, len(Categories))
	for _, tok := range strings.FieldsFunc(strings.ToLower(text), isSeparator) {
		for _, i := range m.index[tok] {
			counts[i]++
		}
	}
	return project(counts, labels), nil
}

func isSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// project reorders scores computed over Categories into the order of labels.
func project(scores []float64, labels []models.Category) []float64 {
	pos := make(map[models.Category]int, len(Categories))
	for i, c := range Categories {
		pos[c] = i
	}
	out := make([]float64, len(labels))
	for i, l := range labels {
		if j, ok := pos[l]; ok {
			out[i] = scores[j]
		}
	}
	return out
}
