package component

// Layer is a shared tag grouping entities for rendering or lookup, e.g.
// "props" or "lights". Entities with the same Layer share one value.
type Layer string
