package ast

// Shape summarizes the size of a tree for statistics sinks.
type Shape struct {
	Nodes int
	Depth int
}

// ShapeOf counts the nodes under root and the length of the longest
// root-to-leaf path. A lone root has depth 1; a nil root has the zero Shape.
func ShapeOf(root Node) Shape {
	var s Shape
	depth := 0
	Inspect(root, func(n Node) bool {
		if n == nil {
			depth--
			return false
		}
		s.Nodes++
		depth++
		if depth > s.Depth {
			s.Depth = depth
		}
		return true
	})
	return s
}
