package classify

import "github.com/hyperjump/pagesift/internal/models"

// Categories is the closed label set, in tie-break order.
var Categories = []models.Category{
	"Arts & Entertainment",
	"Autos & Vehicles",
	"Beauty & Fitness",
	"Books & Literature",
	"Business & Industrial",
	"Computers & Electronics",
	"Finance",
	"Food & Drink",
	"Games",
	"Health",
	"Hobbies & Leisure",
	"Home & Garden",
	"Internet & Telecom",
	"Jobs & Education",
	"Law & Government",
	"News",
	"Online Communities",
	"People & Society",
	"Pets & Animals",
	"Real Estate",
	"Reference",
	"Science",
	"Shopping",
	"Sports",
	"Travel & Transportation",
	"World Localities",
}

var categorySet = func() map[models.Category]bool {
	m := make(map[models.Category]bool, len(Categories))
	for _, c := range Categories {
		m[c] = true
	}
	return m
}()

// IsCategory reports whether c belongs to the closed set.
func IsCategory(c models.Category) bool {
	return categorySet[c]
}
