package vm

// Object is an instance of a user-defined class.
//
// Objects use a hybrid slot layout:
//   - 4 inline slots for objects with at most 4 slots (most objects)
//   - an overflow slice for the rest
//
// Slot i of an object belongs to whichever class in its superclass chain
// declared it; each class's own slots follow those it inherits.
type Object struct {
	class    *Class
	numSlots int

	slot0 Value
	slot1 Value
	slot2 Value
	slot3 Value

	overflow []Value
}

// NumInlineSlots is the number of slots stored directly in the Object struct.
const NumInlineSlots = 4

// NewObject creates an instance of cls with every slot set to Nil.
func NewObject(cls *Class) *Object {
	n := cls.NumSlots()
	obj := &Object{
		class:    cls,
		numSlots: n,
		slot0:    Nil,
		slot1:    Nil,
		slot2:    Nil,
		slot3:    Nil,
	}
	if n > NumInlineSlots {
		obj.overflow = make([]Value, n-NumInlineSlots)
		for i := range obj.overflow {
			obj.overflow[i] = Nil
		}
	}
	return obj
}

// Class returns the runtime class of the object.
func (obj *Object) Class() *Class { return obj.class }

// GetSlot returns the value at the given slot index.
// Panics if index is out of range.
func (obj *Object) GetSlot(index int) Value {
	if index < 0 || index >= obj.numSlots {
		panic("Object.GetSlot: index out of range")
	}
	switch index {
	case 0:
		return obj.slot0
	case 1:
		return obj.slot1
	case 2:
		return obj.slot2
	case 3:
		return obj.slot3
	}
	return obj.overflow[index-NumInlineSlots]
}

// SetSlot sets the value at the given slot index.
// Panics if index is out of range.
func (obj *Object) SetSlot(index int, value Value) {
	if index < 0 || index >= obj.numSlots {
		panic("Object.SetSlot: index out of range")
	}
	switch index {
	case 0:
		obj.slot0 = value
	case 1:
		obj.slot1 = value
	case 2:
		obj.slot2 = value
	case 3:
		obj.slot3 = value
	default:
		obj.overflow[index-NumInlineSlots] = value
	}
}

// NumSlots returns the number of slots of the object.
func (obj *Object) NumSlots() int {
	return obj.numSlots
}
