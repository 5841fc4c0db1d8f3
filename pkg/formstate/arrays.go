package formstate

import (
	"fmt"

	"github.com/goliatone/go-formstate/pkg/fieldpath"
)

// PushArrayElement appends element to the sequence at path, creating the
// sequence when absent. Object elements without an identifier under the id
// key get one from the engine's generator. The element's identifier is
// returned ("" for scalar elements). Identifier collisions are not checked.
func (e *Engine) PushArrayElement(path string, element any) (string, error) {
	var id string
	err := e.mutateArray(path, func(list []any, _ fieldpath.Path) ([]any, error) {
		item, itemID := e.prepareElement(element)
		id = itemID
		return append(list, item), nil
	})
	return id, err
}

// InsertArrayElement places element at index (0 <= index <= len), shifting
// later elements, their touched flags and errors up by one.
func (e *Engine) InsertArrayElement(path string, index int, element any) (string, error) {
	var id string
	err := e.mutateArray(path, func(list []any, array fieldpath.Path) ([]any, error) {
		if index < 0 || index > len(list) {
			return nil, fmt.Errorf("%w: insert at %d into %s (len %d)", ErrIndexOutOfRange, index, path, len(list))
		}
		item, itemID := e.prepareElement(element)
		id = itemID

		out := make([]any, 0, len(list)+1)
		out = append(out, list[:index]...)
		out = append(out, item)
		out = append(out, list[index:]...)

		e.remapLocked(array, func(i int) (int, bool) {
			if i >= index {
				return i + 1, true
			}
			return i, true
		})
		return out, nil
	})
	return id, err
}

// RemoveArrayElement deletes the element at index. Later elements keep their
// identifiers while their paths, touched flags and errors shift down by one;
// state recorded for the removed element is dropped.
func (e *Engine) RemoveArrayElement(path string, index int) error {
	return e.mutateArray(path, func(list []any, array fieldpath.Path) ([]any, error) {
		if index < 0 || index >= len(list) {
			return nil, fmt.Errorf("%w: remove %d from %s (len %d)", ErrIndexOutOfRange, index, path, len(list))
		}
		out := make([]any, 0, len(list)-1)
		out = append(out, list[:index]...)
		out = append(out, list[index+1:]...)

		e.remapLocked(array, func(i int) (int, bool) {
			switch {
			case i == index:
				return 0, false
			case i > index:
				return i - 1, true
			default:
				return i, true
			}
		})
		return out, nil
	})
}

// SwapArrayElements exchanges the elements at i and j.
func (e *Engine) SwapArrayElements(path string, i, j int) error {
	return e.mutateArray(path, func(list []any, array fieldpath.Path) ([]any, error) {
		if i < 0 || i >= len(list) || j < 0 || j >= len(list) {
			return nil, fmt.Errorf("%w: swap %d and %d in %s (len %d)", ErrIndexOutOfRange, i, j, path, len(list))
		}
		list[i], list[j] = list[j], list[i]
		e.remapLocked(array, func(k int) (int, bool) {
			switch k {
			case i:
				return j, true
			case j:
				return i, true
			default:
				return k, true
			}
		})
		return list, nil
	})
}

// MoveArrayElement moves the element at from to position to, shifting the
// elements in between.
func (e *Engine) MoveArrayElement(path string, from, to int) error {
	return e.mutateArray(path, func(list []any, array fieldpath.Path) ([]any, error) {
		if from < 0 || from >= len(list) || to < 0 || to >= len(list) {
			return nil, fmt.Errorf("%w: move %d to %d in %s (len %d)", ErrIndexOutOfRange, from, to, path, len(list))
		}
		item := list[from]
		out := make([]any, 0, len(list))
		out = append(out, list[:from]...)
		out = append(out, list[from+1:]...)
		out = append(out[:to], append([]any{item}, out[to:]...)...)

		e.remapLocked(array, func(k int) (int, bool) {
			switch {
			case k == from:
				return to, true
			case from < to && k > from && k <= to:
				return k - 1, true
			case from > to && k >= to && k < from:
				return k + 1, true
			default:
				return k, true
			}
		})
		return out, nil
	})
}

// mutateArray resolves the sequence at path (absent and nil count as empty),
// applies fn under the lock and stores the result back.
func (e *Engine) mutateArray(path string, fn func(list []any, array fieldpath.Path) ([]any, error)) error {
	array, err := fieldpath.Parse(path)
	if err != nil {
		return err
	}
	if array.HasWildcard() {
		return fmt.Errorf("%w: %q contains a wildcard", fieldpath.ErrInvalidPath, path)
	}
	return e.update(e.validateOnChange, func() error {
		var list []any
		if current, ok := fieldpath.Get(e.values, array); ok && current != nil {
			typed, isList := current.([]any)
			if !isList {
				return fmt.Errorf("%w: %s holds %T", ErrNotArray, path, current)
			}
			list = typed
		}
		out, err := fn(list, array)
		if err != nil {
			return err
		}
		if out == nil {
			out = []any{}
		}
		return fieldpath.Set(e.values, array, out)
	})
}

func (e *Engine) prepareElement(element any) (any, string) {
	item := fieldpath.Clone(element)
	obj, ok := item.(map[string]any)
	if !ok || e.idKey == "" {
		return item, ""
	}
	if existing, ok := obj[e.idKey]; ok && existing != nil && existing != "" {
		return obj, fmt.Sprint(existing)
	}
	id := e.newID()
	obj[e.idKey] = id
	return obj, id
}

func (e *Engine) remapLocked(array fieldpath.Path, fn func(int) (int, bool)) {
	e.touched = fieldpath.RemapIndices(e.touched, array, fn)
	e.fieldErrors = fieldpath.RemapIndices(map[string]string(e.fieldErrors), array, fn)
}
