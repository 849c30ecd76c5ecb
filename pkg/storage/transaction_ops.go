package storage

import (
	"fmt"
	"time"
)

// PropertyKey returns the schema entry for name as seen by this
// transaction: staged keys first, then committed ones.
func (tx *Transaction) PropertyKey(name string) (PropertyKey, bool) {
	tx.mu.Lock()
	key, ok := tx.stagedKeys[name]
	tx.mu.Unlock()
	if ok {
		return *key, true
	}
	return tx.gs.PropertyKey(name)
}

// MakeKey stages an indexed property key. It fails with ErrReservedKey for
// "id"/"_id", ErrKeyExists when a key of the same type is already visible
// and ErrSchemaConflict when one of a different type is.
func (tx *Transaction) MakeKey(name string, dataType PropertyType) error {
	if name == "" {
		return NewError("make_key").Key(name).Cause(fmt.Errorf("empty key name")).Err()
	}
	if IsReservedKey(name) {
		return NewError("make_key").Key(name).Cause(ErrReservedKey).Err()
	}
	if !dataType.Valid() {
		return NewError("make_key").Key(name).Cause(ErrInvalidPropertyType).Err()
	}

	existing, found := tx.PropertyKey(name)

	tx.mu.Lock()
	defer tx.mu.Unlock()

	if !tx.active {
		return ErrTransactionNotActive
	}
	if found {
		if existing.DataType != dataType {
			return SchemaConflictError(name, existing.DataType, dataType)
		}
		return NewError("make_key").Key(name).Cause(ErrKeyExists).Err()
	}

	tx.stagedKeys[name] = &PropertyKey{
		Name:      name,
		DataType:  dataType,
		Indexed:   true,
		CreatedAt: time.Now().Unix(),
	}
	tx.keyOrder = append(tx.keyOrder, name)
	return nil
}

// AddVertex stages a vertex and returns its internal ID. Values of
// declared keys are coerced to the key's type; other values are kept as is.
func (tx *Transaction) AddVertex(externalID string, properties map[string]Value) (uint64, error) {
	props, err := tx.coerceProperties(properties)
	if err != nil {
		return 0, NewError("add_vertex").External(externalID).Cause(err).Err()
	}

	tx.mu.Lock()
	defer tx.mu.Unlock()

	if !tx.active {
		return 0, ErrTransactionNotActive
	}

	nodeID := tx.gs.allocateNodeID()
	tx.createdNodes[nodeID] = &Node{
		ID:         nodeID,
		ExternalID: externalID,
		Properties: props,
		CreatedAt:  time.Now().Unix(),
	}
	tx.nodeOrder = append(tx.nodeOrder, nodeID)
	return nodeID, nil
}

// AddEdge stages an edge between two vertices, each either staged in this
// transaction or already committed.
func (tx *Transaction) AddEdge(externalID, label string, fromID, toID uint64, properties map[string]Value) (uint64, error) {
	props, err := tx.coerceProperties(properties)
	if err != nil {
		return 0, NewError("add_edge").External(externalID).Cause(err).Err()
	}

	tx.mu.Lock()
	defer tx.mu.Unlock()

	if !tx.active {
		return 0, ErrTransactionNotActive
	}
	for _, id := range []uint64{fromID, toID} {
		if !tx.nodeVisible(id) {
			return 0, NewError("add_edge").Node(id).Cause(ErrNodeNotFound).Err()
		}
	}

	edgeID := tx.gs.allocateEdgeID()
	tx.createdEdges[edgeID] = &Edge{
		ID:         edgeID,
		ExternalID: externalID,
		FromNodeID: fromID,
		ToNodeID:   toID,
		Label:      label,
		Properties: props,
		CreatedAt:  time.Now().Unix(),
	}
	tx.edgeOrder = append(tx.edgeOrder, edgeID)
	return edgeID, nil
}

// nodeVisible must be called with tx.mu held.
func (tx *Transaction) nodeVisible(id uint64) bool {
	if _, ok := tx.createdNodes[id]; ok {
		return true
	}
	tx.gs.mu.RLock()
	defer tx.gs.mu.RUnlock()
	_, ok := tx.gs.nodes[id]
	return ok
}

func (tx *Transaction) coerceProperties(properties map[string]Value) (map[string]Value, error) {
	props := make(map[string]Value, len(properties))
	for k, v := range properties {
		if key, ok := tx.PropertyKey(k); ok {
			coerced, err := Coerce(key.DataType, v)
			if err != nil {
				return nil, fmt.Errorf("property %q: %w", k, err)
			}
			v = coerced
		}
		props[k] = v
	}
	return props, nil
}
