package ledger

import "fmt"

// Kind identifies what an event records: one value per (entity, operation)
// pair, plus KindUnrecognized for tags this build does not know.
type Kind uint8

const (
	KindUnrecognized Kind = iota
	KindNoteCreated
	KindNoteUpdated
	KindNoteDeleted
	KindWipGroupCreated
	KindWipGroupUpdated
	KindWipGroupDeleted
	KindSpriteCreated
	KindSpriteUpdated
	KindSpriteDeleted
)

var kindTags = [...]string{
	KindUnrecognized:    "UNRECOGNIZED",
	KindNoteCreated:     "NOTE_CREATED",
	KindNoteUpdated:     "NOTE_UPDATED",
	KindNoteDeleted:     "NOTE_DELETED",
	KindWipGroupCreated: "WIP_GROUP_CREATED",
	KindWipGroupUpdated: "WIP_GROUP_UPDATED",
	KindWipGroupDeleted: "WIP_GROUP_DELETED",
	KindSpriteCreated:   "SPRITE_CREATED",
	KindSpriteUpdated:   "SPRITE_UPDATED",
	KindSpriteDeleted:   "SPRITE_DELETED",
}

var tagKinds = func() map[string]Kind {
	m := make(map[string]Kind, len(kindTags))
	for k, tag := range kindTags {
		if Kind(k) != KindUnrecognized {
			m[tag] = Kind(k)
		}
	}
	return m
}()

// ParseKind maps a stored tag to its Kind. Unknown tags yield KindUnrecognized.
func ParseKind(tag string) Kind {
	if k, ok := tagKinds[tag]; ok {
		return k
	}
	return KindUnrecognized
}

// Kinds returns every recognized kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, 0, len(kindTags)-1)
	for k := KindNoteCreated; k <= KindSpriteDeleted; k++ {
		out = append(out, k)
	}
	return out
}

// String returns the stored tag.
func (k Kind) String() string {
	if int(k) < len(kindTags) {
		return kindTags[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Known reports whether k is a recognized kind.
func (k Kind) Known() bool {
	return k > KindUnrecognized && k <= KindSpriteDeleted
}

// Entity returns the entity family of the kind: "note", "wip_group" or "sprite".
func (k Kind) Entity() string {
	switch k {
	case KindNoteCreated, KindNoteUpdated, KindNoteDeleted:
		return "note"
	case KindWipGroupCreated, KindWipGroupUpdated, KindWipGroupDeleted:
		return "wip_group"
	case KindSpriteCreated, KindSpriteUpdated, KindSpriteDeleted:
		return "sprite"
	default:
		return ""
	}
}
