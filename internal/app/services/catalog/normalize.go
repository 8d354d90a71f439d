package catalog

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/Turistty/Simplifique-Application/internal/app/domain/reward"
)

// DefaultRewardImage is served when a record carries no image reference.
const DefaultRewardImage = "/logos/Simplifique.png"

var sizeSuffixRE = regexp.MustCompile(`(?i)\s*-\s*(P|M|G|GG)\s*$`)

var nonDigitRE = regexp.MustCompile(`\D`)

// NormalizeBaseName strips a trailing " - P/M/G/GG" size suffix so flat rows
// emitted under decorated names can be merged by base product name.
func NormalizeBaseName(name string) string {
	return strings.TrimSpace(sizeSuffixRE.ReplaceAllString(name, ""))
}

// SplitSizeSuffix returns the base name and the size label embedded in a
// decorated name, or an empty size when no suffix is present.
func SplitSizeSuffix(name string) (base, size string) {
	match := sizeSuffixRE.FindStringSubmatch(name)
	if match == nil {
		return strings.TrimSpace(name), ""
	}
	return NormalizeBaseName(name), strings.ToUpper(match[1])
}

// SafeNumber coerces a raw JSON value to an int. Numbers are truncated;
// strings are stripped of every non-digit rune before parsing. Anything that
// still fails to parse yields the fallback. It never errors.
func SafeNumber(value gjson.Result, fallback int) int {
	switch value.Type {
	case gjson.Number:
		f := value.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fallback
		}
		return int(f)
	case gjson.String, gjson.True, gjson.False, gjson.JSON:
		digits := nonDigitRE.ReplaceAllString(value.String(), "")
		if digits == "" {
			return fallback
		}
		n, err := strconv.Atoi(digits)
		if err != nil {
			return fallback
		}
		return n
	default:
		return fallback
	}
}

// firstString resolves a string attribute through a prioritized list of field
// names, returning the first non-blank value.
func firstString(record gjson.Result, fields ...string) string {
	for _, field := range fields {
		if v := strings.TrimSpace(record.Get(field).String()); v != "" {
			return v
		}
	}
	return ""
}

// firstNumber resolves a numeric attribute through a prioritized list of
// field names, coercing the first present value.
func firstNumber(record gjson.Result, fallback int, fields ...string) int {
	for _, field := range fields {
		if v := record.Get(field); v.Exists() {
			return SafeNumber(v, fallback)
		}
	}
	return fallback
}

// isProductShape reports whether a record is pre-grouped: it carries the
// canonical product identifier, a direct cost field, or a variants array.
func isProductShape(record gjson.Result) bool {
	if record.Get("product_id").Exists() {
		return true
	}
	if record.Get("pointsCost").Exists() {
		return true
	}
	return record.Get("variants").IsArray()
}

// normalized is the flat single-variant form of a raw backend record, with
// every heterogeneously named field resolved to its canonical attribute.
type normalized struct {
	ID           int
	ProductID    int
	SKU          string
	Name         string
	Description  string
	Details      string
	Category     string
	Size         string
	PointsCost   int
	ImageURL     string
	StockInitial int
	StockCurrent int
}

func normalizeRecord(record gjson.Result) normalized {
	id := firstNumber(record, 0, "id", "ID")
	productID := firstNumber(record, 0, "product_id", "PRODUCT_ID")
	if productID == 0 {
		productID = id
	}

	name := firstString(record, "name", "Nome")
	if name == "" {
		name = fmt.Sprintf("Item %d", id)
	}

	category := firstString(record, "category", "Categoria")
	if category == "" {
		category = "Outros"
	}

	stockInitial := firstNumber(record, 0, "stockInitial", "Estoque_Inicial", "EstoqueInicial", "Estoque")
	stockCurrent := firstNumber(record, stockInitial, "stockCurrent", "stock")

	return normalized{
		ID:           id,
		ProductID:    productID,
		SKU:          firstString(record, "sku", "SKU"),
		Name:         name,
		Description:  firstString(record, "description", "Descricao"),
		Details:      firstString(record, "details", "Detalhes"),
		Category:     category,
		Size:         firstString(record, "size", "Tamanho"),
		PointsCost:   firstNumber(record, 0, "pointsCost", "Custo"),
		ImageURL:     firstString(record, "imageUrl", "URL"),
		StockInitial: stockInitial,
		StockCurrent: stockCurrent,
	}
}

// ToReward converts one raw catalog record of either documented shape into
// exactly one canonical Reward. The shape is resolved once, here; downstream
// code never re-inspects raw records.
func ToReward(record gjson.Result) reward.Reward {
	if isProductShape(record) {
		return productToReward(record)
	}
	return flatToReward(record)
}

// ToRewardJSON is ToReward over a raw JSON document.
func ToRewardJSON(data []byte) reward.Reward {
	return ToReward(gjson.ParseBytes(data))
}

func productToReward(record gjson.Result) reward.Reward {
	productID := firstNumber(record, 0, "product_id", "id")
	name := firstString(record, "name", "Nome")
	category := firstString(record, "category", "Categoria")
	if category == "" {
		category = "Outros"
	}

	var variants []reward.Variant
	for _, raw := range record.Get("variants").Array() {
		variants = append(variants, reward.Variant{
			ID:         firstNumber(raw, 0, "id", "ID"),
			Size:       firstString(raw, "size", "Tamanho"),
			PointsCost: firstNumber(raw, 0, "pointsCost", "Custo"),
			ImageURL:   firstString(raw, "imageUrl", "URL"),
			Stock:      firstNumber(raw, 0, "stockCurrent", "stockInitial", "stock"),
			SKU:        firstString(raw, "sku", "SKU"),
		})
	}

	imageURL := firstString(record, "imageUrl", "URL")
	if imageURL == "" && len(variants) > 0 {
		imageURL = variants[0].ImageURL
	}
	if imageURL == "" {
		imageURL = DefaultRewardImage
	}

	pointsCost := firstNumber(record, 0, "pointsCost", "custo", "Custo")
	stock := firstNumber(record, 0, "stock", "stockCurrent")

	var sizes []string
	seen := map[string]bool{}
	for _, v := range variants {
		if v.Size != "" && !seen[v.Size] {
			seen[v.Size] = true
			sizes = append(sizes, v.Size)
		}
	}

	if len(variants) == 0 {
		variants = []reward.Variant{{
			ID:         productID,
			PointsCost: pointsCost,
			ImageURL:   imageURL,
			Stock:      stock,
		}}
	}

	return reward.Reward{
		ID:          productID,
		Name:        NormalizeBaseName(name),
		Description: firstString(record, "description", "Descricao"),
		Details:     firstString(record, "details", "Detalhes"),
		Category:    category,
		ImageURL:    imageURL,
		PointsCost:  pointsCost,
		Stock:       stock,
		Sizes:       sizes,
		Variants:    variants,
	}
}

func flatToReward(record gjson.Result) reward.Reward {
	norm := normalizeRecord(record)

	baseName, suffixSize := SplitSizeSuffix(norm.Name)
	size := norm.Size
	if size == "" {
		size = suffixSize
	}

	imageURL := norm.ImageURL
	if imageURL == "" {
		imageURL = DefaultRewardImage
	}

	stock := norm.StockCurrent
	if stock == 0 {
		stock = norm.StockInitial
	}

	rewardID := norm.ProductID
	if rewardID == 0 {
		rewardID = norm.ID
	}

	var sizes []string
	if size != "" {
		sizes = []string{size}
	}

	return reward.Reward{
		ID:          rewardID,
		Name:        baseName,
		Description: norm.Description,
		Details:     norm.Details,
		Category:    norm.Category,
		ImageURL:    imageURL,
		PointsCost:  norm.PointsCost,
		Stock:       stock,
		Sizes:       sizes,
		Variants: []reward.Variant{{
			ID:         norm.ID,
			Size:       size,
			PointsCost: norm.PointsCost,
			ImageURL:   norm.ImageURL,
			Stock:      stock,
			SKU:        norm.SKU,
		}},
	}
}

// RewardsFromJSON normalizes a raw JSON array of records. Non-array payloads
// yield an empty slice.
func RewardsFromJSON(data []byte) []reward.Reward {
	parsed := gjson.ParseBytes(data)
	if !parsed.IsArray() {
		return nil
	}
	records := parsed.Array()
	rewards := make([]reward.Reward, 0, len(records))
	for _, record := range records {
		rewards = append(rewards, ToReward(record))
	}
	return rewards
}

// MergeByGroup merges rewards sharing (normalized name, category): variant
// lists concatenate, size sets union, stock sums, and the representative cost
// becomes the minimum nonzero cost across the group. Used on the flat
// fallback path where size variants arrive as separate records.
func MergeByGroup(rewards []reward.Reward) []reward.Reward {
	type group struct {
		index int
	}
	groups := map[string]group{}
	var result []reward.Reward

	for _, r := range rewards {
		key := r.Name + "::" + r.Category
		g, ok := groups[key]
		if !ok {
			groups[key] = group{index: len(result)}
			merged := r
			merged.Sizes = append([]string(nil), r.Sizes...)
			merged.Variants = append([]reward.Variant(nil), r.Variants...)
			result = append(result, merged)
			continue
		}

		merged := &result[g.index]
		merged.Variants = append(merged.Variants, r.Variants...)
		for _, size := range r.Sizes {
			if !containsString(merged.Sizes, size) {
				merged.Sizes = append(merged.Sizes, size)
			}
		}
		merged.Stock += r.Stock
		if r.PointsCost > 0 && (merged.PointsCost == 0 || r.PointsCost < merged.PointsCost) {
			merged.PointsCost = r.PointsCost
		}
	}
	return result
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
