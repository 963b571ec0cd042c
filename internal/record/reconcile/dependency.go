package reconcile

import (
	"time"

	"casefile/internal/record/models"
	"casefile/internal/record/schema"
	id "casefile/pkg/domain"
	dErrors "casefile/pkg/domain-errors"
)

// Dependencies merges an incoming list of partial items into an existing
// identity-keyed dependency collection, honoring the descriptor's field
// allow-list, file flag, and nested subtype collections.
//
// A nil incoming list leaves the collection unchanged (returned as a deep
// copy). Items without an id are inserted; their surrogate id is assigned on
// first persistence by the store. Items with an id patch the matching
// existing item in place: only allow-listed fields present in the payload are
// overwritten, the file set is replaced when supplied, and subtype
// collections are reconciled via TypeItems. An id with no matching existing
// item is a hard error; unknown items are never silently created.
func Dependencies(existing []models.DependencyItem, incoming []map[string]any, desc schema.Dependency, actor id.UserID, now time.Time) ([]models.DependencyItem, error) {
	out := make([]models.DependencyItem, len(existing))
	for i := range existing {
		out[i] = existing[i].Clone()
	}
	if incoming == nil {
		return out, nil
	}

	keep := make(map[id.ItemID]struct{}, len(incoming))
	for _, payload := range incoming {
		itemID, ok, err := payloadItemID(payload)
		if err != nil {
			return nil, err
		}
		if ok {
			keep[itemID] = struct{}{}
		}
	}

	for i := range out {
		if _, wanted := keep[out[i].ID]; !wanted && out[i].DeletedAt == nil {
			deletedAt := now
			out[i].DeletedAt = &deletedAt
		}
	}

	for _, raw := range incoming {
		payload := models.SectionPayload(raw)
		itemID, hasID, err := payloadItemID(raw)
		if err != nil {
			return nil, err
		}

		if !hasID {
			out = append(out, newItem(payload, desc, actor, now))
			continue
		}

		item := findItem(out, itemID)
		if item == nil {
			return nil, dErrors.New(dErrors.CodeInvalidData,
				desc.Name+" item "+itemID.String()+" does not exist on this record")
		}
		patchItem(item, payload, desc, actor, now)
	}
	return out, nil
}

// payloadItemID extracts and validates the optional surrogate id of one
// incoming item. A present id must be a valid uuid string; anything else is
// rejected rather than treated as a request for a new item.
func payloadItemID(payload map[string]any) (id.ItemID, bool, error) {
	raw, present := payload["id"]
	if !present || raw == nil {
		return id.ItemID{}, false, nil
	}
	s, ok := raw.(string)
	if !ok {
		return id.ItemID{}, false, dErrors.New(dErrors.CodeInvalidData, "item id must be a string")
	}
	if s == "" {
		return id.ItemID{}, false, dErrors.New(dErrors.CodeInvalidData, "item id must not be empty")
	}
	itemID, err := id.ParseItemID(s)
	if err != nil {
		return id.ItemID{}, false, dErrors.Wrap(err, dErrors.CodeInvalidData, "malformed item id")
	}
	return itemID, true, nil
}

func newItem(payload models.SectionPayload, desc schema.Dependency, actor id.UserID, now time.Time) models.DependencyItem {
	item := models.DependencyItem{
		Fields:    make(map[string]string, len(desc.Fields)),
		CreatedBy: actor,
		UpdatedBy: actor,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, field := range desc.Fields {
		if v, ok := payload.StringField(field); ok {
			item.Fields[field] = v
		}
	}
	if desc.Files {
		if refs, ok := payload.FileRefs("files"); ok {
			item.Files = refs
		}
	}
	for _, name := range desc.Subtypes {
		if codes, ok := payload.Codes(name); ok {
			if item.Subtypes == nil {
				item.Subtypes = make(map[string][]models.TypeItem, len(desc.Subtypes))
			}
			item.Subtypes[name] = TypeItems(nil, codes, actor, now)
		}
	}
	return item
}

func patchItem(item *models.DependencyItem, payload models.SectionPayload, desc schema.Dependency, actor id.UserID, now time.Time) {
	for _, field := range desc.Fields {
		if v, ok := payload.StringField(field); ok {
			if item.Fields == nil {
				item.Fields = make(map[string]string, len(desc.Fields))
			}
			item.Fields[field] = v
		}
	}
	if desc.Files {
		if refs, ok := payload.FileRefs("files"); ok {
			item.Files = refs
		}
	}
	for _, name := range desc.Subtypes {
		if codes, ok := payload.Codes(name); ok {
			if item.Subtypes == nil {
				item.Subtypes = make(map[string][]models.TypeItem, len(desc.Subtypes))
			}
			item.Subtypes[name] = TypeItems(item.Subtypes[name], codes, actor, now)
		}
	}
	item.UpdatedBy = actor
	item.UpdatedAt = now
}

func findItem(items []models.DependencyItem, itemID id.ItemID) *models.DependencyItem {
	for i := range items {
		if items[i].ID == itemID {
			return &items[i]
		}
	}
	return nil
}

// ActiveItems returns the non-deleted items, in collection order.
func ActiveItems(items []models.DependencyItem) []models.DependencyItem {
	out := make([]models.DependencyItem, 0, len(items))
	for _, item := range items {
		if item.DeletedAt == nil {
			out = append(out, item)
		}
	}
	return out
}
