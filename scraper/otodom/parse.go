package otodom

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"flat-ranker/models"
)

const (
	baseURL    = "https://www.otodom.pl"
	searchPath = "/pl/oferty/wynajem/mieszkanie/wiele-lokalizacji"

	// ListingsPerPage is the largest page size the search accepts.
	ListingsPerPage = 72
)

// Warsaw districts the search is restricted to.
const searchLocations = "[districts_6-3319,districts_6-39,districts_6-40,districts_6-44,districts_6-53,districts_6-117]"

// Selectors of the rendered markup.
const (
	selResultList   = `div[data-cy="search.listing"]`
	selCard         = "li.css-p74l73.es62z2j17"
	selHeaderValue  = "span.css-rmqm02.eclomwz0"
	selLocalization = "span.css-17o293g.es62z2j9"
	selAttribute    = "div.css-1ccovha.estckra9"
	selAttrCell     = "div.css-1qzszy5.estckra8"
)

// SearchParams narrows the search on the site itself, before any local filtering.
type SearchParams struct {
	MaxPrice         int
	MinArea          int
	DaysSinceCreated int
}

// Card is a search result: its absolute URL and the header fields
// shown in the result list.
type Card struct {
	URL    string
	Fields map[string]string
}

// PageCount returns how many result pages cover maxSearch listings.
func PageCount(maxSearch int) int {
	if maxSearch <= 0 {
		return 0
	}
	return (maxSearch + ListingsPerPage - 1) / ListingsPerPage
}

// SearchURL builds the URL of one page of two and three room rentals.
func SearchURL(p SearchParams, page int) string {
	q := url.Values{}
	q.Set("distanceRadius", "0")
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(ListingsPerPage))
	q.Set("market", "ALL")
	q.Set("ownerTypeSingleSelect", "ALL")
	q.Set("priceMax", strconv.Itoa(p.MaxPrice))
	q.Set("areaMin", strconv.Itoa(p.MinArea))
	q.Set("roomsNumber", "[TWO,THREE]")
	q.Set("locations", searchLocations)
	q.Set("daysSinceCreated", strconv.Itoa(p.DaysSinceCreated))
	q.Set("media", "[]")
	q.Set("extras", "[]")
	q.Set("viewType", "listing")
	return baseURL + searchPath + "?" + q.Encode()
}

// ParseSearchPage extracts result cards from a rendered search page. The
// page lists promoted offers first, so the real results are the second
// result list; ok is false when it is missing, meaning no more pages.
func ParseSearchPage(html string) (cards []Card, ok bool, err error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, false, fmt.Errorf("parse search page: %w", err)
	}

	lists := doc.Find(selResultList)
	if lists.Length() < 2 {
		return nil, false, nil
	}

	lists.Eq(1).Find(selCard).Each(func(_ int, li *goquery.Selection) {
		href, exists := li.Find("a[href]").First().Attr("href")
		if !exists || href == "" {
			return
		}

		var header []string
		li.Find(selHeaderValue).Each(func(_ int, s *goquery.Selection) {
			header = append(header, strings.TrimSpace(s.Text()))
		})
		if len(header) < 2 {
			return
		}

		fields := map[string]string{
			models.FieldPrice: header[0],
			models.FieldRooms: header[1],
		}
		if len(header) > 2 {
			fields[models.FieldArea] = header[2]
		}
		if loc := li.Find(selLocalization).First(); loc.Length() > 0 {
			fields[models.FieldLocalization] = strings.TrimSpace(loc.Text())
		}

		cards = append(cards, Card{URL: absoluteURL(href), Fields: fields})
	})

	return cards, true, nil
}

// ParseDetailPage extracts the label/value attribute table of a listing
// page, e.g. Czynsz, Kaucja, Piętro.
func ParseDetailPage(html string) (map[string]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse detail page: %w", err)
	}

	attrs := make(map[string]string)
	doc.Find(selAttribute).Each(func(_ int, row *goquery.Selection) {
		cells := row.Find(selAttrCell)
		if cells.Length() < 2 {
			return
		}
		key := strings.TrimSpace(cells.Eq(0).Text())
		if key == "" {
			return
		}
		attrs[key] = strings.TrimSpace(cells.Eq(1).Text())
	})
	return attrs, nil
}

func absoluteURL(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return baseURL + "/" + strings.TrimPrefix(href, "/")
}
