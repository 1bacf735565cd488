// Package ordering maintains the 1-based order numbers on connection
// rows. Renumbering runs after every reconciliation, separately for the
// main→channel direction and the channel→main direction, and separately
// for the manual and ASTI buckets of one main entity.
package ordering

import (
	"sort"

	"github.com/vrk-kpa/ptv-registry/internal/domain"
)

// SortByMainOrder orders rows by (OrderNumber, Created). Gaps or
// duplicates in stored order numbers are a data-integrity condition the
// read path tolerates by falling back to the creation timestamp, never
// trusting strict contiguity.
func SortByMainOrder(rows []*domain.ServiceChannelConnection) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].OrderNumber != rows[j].OrderNumber {
			return rows[i].OrderNumber < rows[j].OrderNumber
		}
		return rows[i].Created.Before(rows[j].Created)
	})
}

// SortByChannelOrder orders rows by (ChannelOrderNumber, Created).
func SortByChannelOrder(rows []*domain.ServiceChannelConnection) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].ChannelOrderNumber != rows[j].ChannelOrderNumber {
			return rows[i].ChannelOrderNumber < rows[j].ChannelOrderNumber
		}
		return rows[i].Created.Before(rows[j].Created)
	})
}

// ReassignMainOrder renumbers OrderNumber 1..N in list order.
func ReassignMainOrder(rows []*domain.ServiceChannelConnection) {
	for i, r := range rows {
		r.OrderNumber = i + 1
	}
}

// ReassignChannelOrder renumbers ChannelOrderNumber 1..N in list order.
func ReassignChannelOrder(rows []*domain.ServiceChannelConnection) {
	for i, r := range rows {
		r.ChannelOrderNumber = i + 1
	}
}

// SplitASTI partitions rows into the manually curated bucket and the
// ASTI-imported bucket, preserving relative order. The two buckets carry
// independent order sequences: a save renumbers the manual bucket by the
// caller's desired order while ASTI rows keep their own sequence.
func SplitASTI(rows []*domain.ServiceChannelConnection) (manual, asti []*domain.ServiceChannelConnection) {
	for _, r := range rows {
		if r.IsASTIConnection {
			asti = append(asti, r)
		} else {
			manual = append(manual, r)
		}
	}
	return manual, asti
}
