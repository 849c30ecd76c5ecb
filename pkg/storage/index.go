package storage

import (
	"fmt"
	"sort"
	"sync"
)

// PropertyIndex maps the values of one indexed key to the nodes carrying them.
type PropertyIndex struct {
	propertyKey string
	indexType   ValueType

	// value encoding -> node IDs
	index map[string][]uint64

	mu sync.RWMutex
}

// NewPropertyIndex creates a new property index
func NewPropertyIndex(propertyKey string, indexType ValueType) *PropertyIndex {
	return &PropertyIndex{
		propertyKey: propertyKey,
		indexType:   indexType,
		index:       make(map[string][]uint64),
	}
}

// Insert adds a node to the index
func (idx *PropertyIndex) Insert(nodeID uint64, value Value) error {
	if value.Type != idx.indexType {
		return fmt.Errorf("%w: index %s expects %v, got %v", ErrTypeMismatch, idx.propertyKey, idx.indexType, value.Type)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	key := string(value.Data)
	idx.index[key] = append(idx.index[key], nodeID)
	return nil
}

// Lookup finds all nodes with a specific property value
func (idx *PropertyIndex) Lookup(value Value) ([]uint64, error) {
	if value.Type != idx.indexType {
		return nil, fmt.Errorf("%w: index %s expects %v, got %v", ErrTypeMismatch, idx.propertyKey, idx.indexType, value.Type)
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	nodeIDs := idx.index[string(value.Data)]
	result := make([]uint64, len(nodeIDs))
	copy(result, nodeIDs)
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result, nil
}

// Len returns the number of indexed (node, value) pairs.
func (idx *PropertyIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	n := 0
	for _, ids := range idx.index {
		n += len(ids)
	}
	return n
}

// DistinctValues returns the number of distinct values indexed.
func (idx *PropertyIndex) DistinctValues() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.index)
}
