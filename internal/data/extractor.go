package data

import (
	"errors"
	"fmt"
	"strings"
)

type BeanCard struct {
	Filename    string `json:"filename,omitempty"`
	Name        string `json:"name"`
	Variety     string `json:"variety"`
	Process     string `json:"process"`
	Altitude    string `json:"altitude"`
	Region      string `json:"region"`
	Estate      string `json:"estate"`
	EstateOwner string `json:"estate_owner"`
	Flavor      string `json:"flavor"`
	Score       string `json:"score"`
	Brand       string `json:"brand"`
}

// Fragment positions of each field in the recognized text of a card. The
// card layout alternates labels and values, so these are the value slots.
const (
	nameIndex        = 2
	varietyIndex     = 5
	processIndex     = 7
	altitudeIndex    = 9
	regionIndex      = 11
	estateIndex      = 12
	estateOwnerIndex = 14
	flavorIndex      = 15
	scoreIndex       = 16
	brandIndex       = 18
)

// MinFragments is the shortest recognized sequence every field index fits in.
const MinFragments = brandIndex + 1

var ErrTooFewFragments = errors.New("too few text fragments for card layout")

type DataExtractor struct{}

func NewDataExtractor() *DataExtractor {
	return &DataExtractor{}
}

func (de *DataExtractor) ExtractFromLines(lines []string, filename string) (*BeanCard, error) {
	if len(lines) < MinFragments {
		return nil, fmt.Errorf("%w: %s has %d, need %d", ErrTooFewFragments, filename, len(lines), MinFragments)
	}

	at := func(i int) string { return de.cleanFragment(lines[i]) }

	return &BeanCard{
		Filename:    filename,
		Name:        at(nameIndex),
		Variety:     at(varietyIndex),
		Process:     at(processIndex),
		Altitude:    at(altitudeIndex),
		Region:      at(regionIndex),
		Estate:      at(estateIndex),
		EstateOwner: at(estateOwnerIndex),
		Flavor:      at(flavorIndex),
		Score:       at(scoreIndex),
		Brand:       at(brandIndex),
	}, nil
}

func (de *DataExtractor) cleanFragment(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

func MapCSVRecord(item BeanCard) []string {
	return []string{
		item.Name,
		item.Variety,
		item.Process,
		item.Altitude,
		item.Region,
		item.Estate,
		item.EstateOwner,
		item.Flavor,
		item.Score,
		item.Brand,
	}
}

// GetCSVHeader returns the column names: name, variety, process, altitude,
// region, estate, estate owner, flavor, score, brand.
func GetCSVHeader() []string {
	return []string{"名字", "品种", "处理法", "海拔", "产区", "庄园", "庄园主", "风味", "测评分数", "品牌"}
}
