package models

import "time"

// AttributeInsight aggregates how a single treatment attribute performed
// across the experiment history.
type AttributeInsight struct {
	// Attribute is the "key=value" form of the variant attribute.
	Attribute string
	// Experiments counts runs whose treatment carried the attribute.
	Experiments int
	// Ships counts those runs that ended in a SHIP decision.
	Ships int
	// ShipRate is Ships / Experiments.
	ShipRate float64
	// MeanLift averages the posterior lift across those runs.
	MeanLift float64
	// LastSeen is the creation time of the newest contributing run.
	LastSeen time.Time
}
