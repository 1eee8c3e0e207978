package store

import (
	"context"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

type DashboardStats struct {
	TotalProducts      int
	TotalOrders        int
	TotalUsers         int
	Revenue            decimal.Decimal
	UnpricedOrders     int // orders whose price text is not a number
	ProductOrderCounts []ProductOrderCount
}

type ProductOrderCount struct {
	ProductID  int
	Name       string
	OrderCount int
}

func (s *Store) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	products, err := s.Products(ctx)
	if err != nil {
		return nil, err
	}
	orders, err := s.Orders(ctx)
	if err != nil {
		return nil, err
	}
	users, err := s.Users(ctx)
	if err != nil {
		return nil, err
	}

	stats := &DashboardStats{
		TotalProducts: len(products),
		TotalOrders:   len(orders),
		TotalUsers:    len(users),
		Revenue:       decimal.Zero,
	}

	counts := make(map[int]*ProductOrderCount)
	for _, o := range orders {
		price := strings.TrimPrefix(strings.TrimSpace(o.Product.Price.String()), "$")
		if d, err := decimal.NewFromString(price); err == nil {
			stats.Revenue = stats.Revenue.Add(d)
		} else {
			stats.UnpricedOrders++
		}

		c, ok := counts[o.Product.ID]
		if !ok {
			c = &ProductOrderCount{ProductID: o.Product.ID, Name: o.Product.Name}
			counts[o.Product.ID] = c
		}
		c.OrderCount++
	}

	for _, c := range counts {
		stats.ProductOrderCounts = append(stats.ProductOrderCounts, *c)
	}
	sort.Slice(stats.ProductOrderCounts, func(i, j int) bool {
		a, b := stats.ProductOrderCounts[i], stats.ProductOrderCounts[j]
		if a.OrderCount != b.OrderCount {
			return a.OrderCount > b.OrderCount
		}
		return a.ProductID < b.ProductID
	})

	return stats, nil
}
