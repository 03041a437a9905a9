package timeline

import (
	"fmt"

	"github.com/harbourlight/conductor/internal/models"
)

// Flatten hoists grouped children into one array, stamping each child's
// InGroup, which is the shape gateways consume.
func Flatten(objs []models.TimelineObject) []models.TimelineObject {
	flat := make([]models.TimelineObject, 0, len(objs))
	var walk func(objs []models.TimelineObject, parent string)
	walk = func(objs []models.TimelineObject, parent string) {
		for _, obj := range objs {
			if obj.InGroup == "" {
				obj.InGroup = parent
			}
			children := obj.Children
			obj.Children = nil
			flat = append(flat, obj)
			walk(children, obj.ID)
		}
	}
	walk(objs, "")
	return flat
}

// Validate checks a flattened timeline for the structural faults that would
// make a gateway's resolve loop fail or spin: missing or duplicate ids,
// references to unknown objects, and cyclic enable references. A failure here
// is fatal for the publish; the previously published timeline stays in
// effect.
func Validate(objs []models.TimelineObject) error {
	byID := make(map[string]*models.TimelineObject, len(objs))
	for i := range objs {
		obj := &objs[i]
		if obj.ID == "" {
			return fmt.Errorf("timeline object without id on layer %q", obj.Layer)
		}
		if _, dup := byID[obj.ID]; dup {
			return fmt.Errorf("duplicate timeline object id %q", obj.ID)
		}
		byID[obj.ID] = obj
	}

	// An object depends on every object its enable references, and on its
	// enclosing group. A cycle among those means no finite resolution exists.
	deps := make(map[string][]string, len(objs))
	for _, obj := range objs {
		refs := obj.Enable.References()
		for _, ref := range refs {
			if _, ok := byID[ref]; !ok {
				return fmt.Errorf("timeline object %q references unknown object %q", obj.ID, ref)
			}
		}
		if obj.InGroup != "" {
			if _, ok := byID[obj.InGroup]; !ok {
				return fmt.Errorf("timeline object %q nested in unknown group %q", obj.ID, obj.InGroup)
			}
			refs = append(refs, obj.InGroup)
		}
		deps[obj.ID] = refs
	}

	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int, len(objs))
	var visit func(id string) error
	visit = func(id string) error {
		switch state[id] {
		case visiting:
			return fmt.Errorf("cyclic enable reference through timeline object %q", id)
		case done:
			return nil
		}
		state[id] = visiting
		for _, dep := range deps[id] {
			if err := visit(dep); err != nil {
				return err
			}
		}
		state[id] = done
		return nil
	}
	for _, obj := range objs {
		if err := visit(obj.ID); err != nil {
			return err
		}
	}
	return nil
}
