package driver

import "github.com/roadpricing-sim/roadpricing-sim/sim/network"

// KnowledgeBase holds what a driver believes about every segment.
type KnowledgeBase struct {
	prices      map[string]int
	travelTimes map[string]float64
}

func newKnowledgeBase(net *network.Network, priceInit func(*network.Segment) int, ttInit func(*network.Segment) float64) *KnowledgeBase {
	kb := &KnowledgeBase{
		prices:      make(map[string]int, len(net.Segments())),
		travelTimes: make(map[string]float64, len(net.Segments())),
	}
	for _, s := range net.Segments() {
		kb.prices[s.ID] = priceInit(s)
		kb.travelTimes[s.ID] = ttInit(s)
	}
	return kb
}

// Price returns the known price; unknown segments get DefaultKnownPrice.
func (kb *KnowledgeBase) Price(segmentID string) int {
	if p, ok := kb.prices[segmentID]; ok {
		return p
	}
	return DefaultKnownPrice
}

// TravelTime returns the known travel time; unknown segments report 0.
func (kb *KnowledgeBase) TravelTime(segmentID string) float64 {
	return kb.travelTimes[segmentID]
}

func (kb *KnowledgeBase) SetPrice(segmentID string, price int) {
	kb.prices[segmentID] = price
}

func (kb *KnowledgeBase) SetTravelTime(segmentID string, tt float64) {
	kb.travelTimes[segmentID] = tt
}
