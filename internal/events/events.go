// Package events defines the tracking engine's listener surface. The
// source's convention-based event bus ("if the listener has a method named
// on<Event>, wire it") is re-expressed here as a set of small single-method
// interfaces: Attach type-asserts the supplied listener against each one, so
// a listener implements only the events it cares about, and dispatch is a
// compile-time-checked method call rather than reflection or a string key.
package events

// FirstSnapshotRecordedHandler handles the first-ever snapshot commit for a
// (serviceId, documentType).
type FirstSnapshotRecordedHandler interface {
	OnFirstSnapshotRecorded(serviceID, documentType, snapshotID string)
}

// SnapshotRecordedHandler handles a subsequent (non-first) snapshot commit.
type SnapshotRecordedHandler interface {
	OnSnapshotRecorded(serviceID, documentType, snapshotID string)
}

// SnapshotNotChangedHandler handles a fetch whose content matched the
// current HEAD snapshot, so no commit was produced.
type SnapshotNotChangedHandler interface {
	OnSnapshotNotChanged(serviceID, documentType string)
}

// FirstVersionRecordedHandler handles the first-ever version commit for a
// (serviceId, documentType).
type FirstVersionRecordedHandler interface {
	OnFirstVersionRecorded(serviceID, documentType, versionID string)
}

// VersionRecordedHandler handles a subsequent (non-first) version commit.
type VersionRecordedHandler interface {
	OnVersionRecorded(serviceID, documentType, versionID string)
}

// VersionNotChangedHandler handles a filter output identical to the current
// HEAD version, so no commit was produced.
type VersionNotChangedHandler interface {
	OnVersionNotChanged(serviceID, documentType string)
}

// RecordsPublishedHandler handles the end of a successful Publish().
type RecordsPublishedHandler interface {
	OnRecordsPublished()
}

// InaccessibleContentHandler handles a fetch failure recognized as
// recoverable (4xx/5xx/timeout); the batch continues regardless.
type InaccessibleContentHandler interface {
	OnInaccessibleContent(err error, serviceID, documentType string)
}

// ErrorHandler handles any other failure. The same error also aborts the
// batch via the engine's error group.
type ErrorHandler interface {
	OnError(err error, serviceID, documentType string)
}

// Listener is the umbrella interface a caller may implement in full; Attach
// accepts any object and wires whichever of the above sub-interfaces it
// satisfies, so implementing Listener is a convenience, not a requirement.
type Listener interface {
	FirstSnapshotRecordedHandler
	SnapshotRecordedHandler
	SnapshotNotChangedHandler
	FirstVersionRecordedHandler
	VersionRecordedHandler
	VersionNotChangedHandler
	RecordsPublishedHandler
	InaccessibleContentHandler
	ErrorHandler
}

// Bus dispatches events to every attached listener that implements the
// matching handler interface.
type Bus struct {
	firstSnapshot      []FirstSnapshotRecordedHandler
	snapshot           []SnapshotRecordedHandler
	snapshotNotChanged []SnapshotNotChangedHandler
	firstVersion       []FirstVersionRecordedHandler
	version            []VersionRecordedHandler
	versionNotChanged  []VersionNotChangedHandler
	published          []RecordsPublishedHandler
	inaccessible       []InaccessibleContentHandler
	errored            []ErrorHandler
}

// Attach wires listener against every event it implements a handler for.
func (b *Bus) Attach(listener any) {
	if h, ok := listener.(FirstSnapshotRecordedHandler); ok {
		b.firstSnapshot = append(b.firstSnapshot, h)
	}
	if h, ok := listener.(SnapshotRecordedHandler); ok {
		b.snapshot = append(b.snapshot, h)
	}
	if h, ok := listener.(SnapshotNotChangedHandler); ok {
		b.snapshotNotChanged = append(b.snapshotNotChanged, h)
	}
	if h, ok := listener.(FirstVersionRecordedHandler); ok {
		b.firstVersion = append(b.firstVersion, h)
	}
	if h, ok := listener.(VersionRecordedHandler); ok {
		b.version = append(b.version, h)
	}
	if h, ok := listener.(VersionNotChangedHandler); ok {
		b.versionNotChanged = append(b.versionNotChanged, h)
	}
	if h, ok := listener.(RecordsPublishedHandler); ok {
		b.published = append(b.published, h)
	}
	if h, ok := listener.(InaccessibleContentHandler); ok {
		b.inaccessible = append(b.inaccessible, h)
	}
	if h, ok := listener.(ErrorHandler); ok {
		b.errored = append(b.errored, h)
	}
}

func (b *Bus) EmitFirstSnapshotRecorded(serviceID, documentType, snapshotID string) {
	for _, h := range b.firstSnapshot {
		h.OnFirstSnapshotRecorded(serviceID, documentType, snapshotID)
	}
}

func (b *Bus) EmitSnapshotRecorded(serviceID, documentType, snapshotID string) {
	for _, h := range b.snapshot {
		h.OnSnapshotRecorded(serviceID, documentType, snapshotID)
	}
}

func (b *Bus) EmitSnapshotNotChanged(serviceID, documentType string) {
	for _, h := range b.snapshotNotChanged {
		h.OnSnapshotNotChanged(serviceID, documentType)
	}
}

func (b *Bus) EmitFirstVersionRecorded(serviceID, documentType, versionID string) {
	for _, h := range b.firstVersion {
		h.OnFirstVersionRecorded(serviceID, documentType, versionID)
	}
}

func (b *Bus) EmitVersionRecorded(serviceID, documentType, versionID string) {
	for _, h := range b.version {
		h.OnVersionRecorded(serviceID, documentType, versionID)
	}
}

func (b *Bus) EmitVersionNotChanged(serviceID, documentType string) {
	for _, h := range b.versionNotChanged {
		h.OnVersionNotChanged(serviceID, documentType)
	}
}

func (b *Bus) EmitRecordsPublished() {
	for _, h := range b.published {
		h.OnRecordsPublished()
	}
}

func (b *Bus) EmitInaccessibleContent(err error, serviceID, documentType string) {
	for _, h := range b.inaccessible {
		h.OnInaccessibleContent(err, serviceID, documentType)
	}
}

func (b *Bus) EmitError(err error, serviceID, documentType string) {
	for _, h := range b.errored {
		h.OnError(err, serviceID, documentType)
	}
}
