package repository

// Key addresses a document.
type Key struct {
	Collection string
	ID         string
}

// KeyOf returns the key of doc.
func KeyOf(doc Document) Key {
	return Key{Collection: doc.Collection, ID: doc.ID}
}

// Tracker records the read set and buffered writes of one transaction.
// Store adapters share it so every backend applies the same version rules:
// a read pins the version it saw (0 when missing), a write expects the
// version carried on the document, and commit succeeds only when every
// pinned version still matches.
type Tracker struct {
	reads   map[Key]int64
	writes  map[Key]Document
	deletes map[Key]struct{}
	order   []Key
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		reads:   make(map[Key]int64),
		writes:  make(map[Key]Document),
		deletes: make(map[Key]struct{}),
	}
}

// ObserveRead pins the version of a document seen by the transaction.
func (t *Tracker) ObserveRead(doc Document) {
	k := KeyOf(doc)
	if _, ok := t.reads[k]; !ok {
		t.reads[k] = doc.Version
	}
}

// ObserveMissing pins a document as absent.
func (t *Tracker) ObserveMissing(collection, id string) {
	k := Key{Collection: collection, ID: id}
	if _, ok := t.reads[k]; !ok {
		t.reads[k] = 0
	}
}

// Buffered returns the pending write for a document. deleted reports a
// pending delete.
func (t *Tracker) Buffered(collection, id string) (doc Document, ok bool, deleted bool) {
	k := Key{Collection: collection, ID: id}
	if _, gone := t.deletes[k]; gone {
		return Document{}, false, true
	}
	doc, ok = t.writes[k]
	return doc, ok, false
}

// Put buffers a write.
func (t *Tracker) Put(doc Document) error {
	if err := Validate(doc); err != nil {
		return err
	}
	k := KeyOf(doc)
	delete(t.deletes, k)
	if _, ok := t.writes[k]; !ok {
		t.order = append(t.order, k)
	}
	doc.Body = append([]byte(nil), doc.Body...)
	doc.Indexes = copyIndexes(doc.Indexes)
	t.writes[k] = doc
	return nil
}

// Delete buffers a delete. The document's read version, if any, is checked at commit.
func (t *Tracker) Delete(collection, id string) error {
	if collection == "" || id == "" {
		return ErrInvalidInput
	}
	k := Key{Collection: collection, ID: id}
	delete(t.writes, k)
	t.deletes[k] = struct{}{}
	return nil
}

// Overlay merges buffered writes into docs listed from the store so a
// transaction sees its own changes.
func (t *Tracker) Overlay(collection, field, value string, docs []Document) []Document {
	out := make([]Document, 0, len(docs))
	seen := make(map[Key]bool, len(docs))
	for _, doc := range docs {
		k := KeyOf(doc)
		seen[k] = true
		if _, gone := t.deletes[k]; gone {
			continue
		}
		if w, ok := t.writes[k]; ok {
			if w.Indexes[field] == value {
				out = append(out, w)
			}
			continue
		}
		out = append(out, doc)
	}
	for _, k := range t.order {
		w, ok := t.writes[k]
		if !ok || seen[k] || k.Collection != collection {
			continue
		}
		if w.Indexes[field] == value {
			out = append(out, w)
		}
	}
	return out
}

// Expectations returns the version every touched document must still have at
// commit. A write whose expected version disagrees with what the transaction
// read is already a conflict.
func (t *Tracker) Expectations() (map[Key]int64, error) {
	exp := make(map[Key]int64, len(t.reads)+len(t.writes))
	for k, v := range t.reads {
		exp[k] = v
	}
	for k, w := range t.writes {
		if read, ok := exp[k]; ok && read != w.Version {
			return nil, ErrConflict
		}
		exp[k] = w.Version
	}
	return exp, nil
}

// Writes returns buffered writes in first-write order.
func (t *Tracker) Writes() []Document {
	out := make([]Document, 0, len(t.writes))
	for _, k := range t.order {
		if w, ok := t.writes[k]; ok {
			out = append(out, w)
		}
	}
	return out
}

// Deletes returns the keys of buffered deletes.
func (t *Tracker) Deletes() []Key {
	out := make([]Key, 0, len(t.deletes))
	for k := range t.deletes {
		out = append(out, k)
	}
	return out
}

// Empty reports whether the transaction wrote nothing.
func (t *Tracker) Empty() bool {
	return len(t.writes) == 0 && len(t.deletes) == 0
}

func copyIndexes(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
