// File: internal/extract/tree.go
package extract

import (
	"math"

	"github.com/stickerverse/figmaconvert/api/schemas"
)

// buildTree links retained nodes into a document tree. Parents always
// precede children in capture order, so a single pass in index order
// attaches every node to its nearest retained ancestor. When more than
// one node survives at the top, a synthetic frame holds them.
func buildTree(capture *schemas.CaptureResult, nodes map[int]*schemas.Node) *schemas.Node {
	var roots []*schemas.Node
	for _, el := range capture.Elements {
		node, ok := nodes[el.Index]
		if !ok {
			continue
		}
		parent := nearestRetained(capture.Elements, nodes, el.ParentIndex)
		if parent == nil {
			roots = append(roots, node)
			continue
		}
		parent.Children = append(parent.Children, node)
	}

	switch len(roots) {
	case 0:
		return nil
	case 1:
		return roots[0]
	}

	return &schemas.Node{
		ID:       "node-root",
		Name:     rootName(capture),
		Type:     schemas.NodeFrame,
		Bounds:   unionBounds(roots),
		Children: roots,
	}
}

// nearestRetained climbs the parent chain until it finds an element that
// survived extraction. Parent indexes always point earlier in the slice,
// so the climb terminates.
func nearestRetained(elements []schemas.CapturedElement, nodes map[int]*schemas.Node, parentIndex int) *schemas.Node {
	for parentIndex >= 0 && parentIndex < len(elements) {
		if node, ok := nodes[parentIndex]; ok {
			return node
		}
		parentIndex = elements[parentIndex].ParentIndex
	}
	return nil
}

func rootName(capture *schemas.CaptureResult) string {
	if capture.Title != "" {
		return capture.Title
	}
	if capture.URL != "" {
		return capture.URL
	}
	return "Document"
}

// unionBounds is the smallest rectangle covering every node.
func unionBounds(nodes []*schemas.Node) schemas.NodeBounds {
	if len(nodes) == 0 {
		return schemas.NodeBounds{}
	}
	left := nodes[0].Bounds.X
	top := nodes[0].Bounds.Y
	right := left + nodes[0].Bounds.Width
	bottom := top + nodes[0].Bounds.Height
	for _, n := range nodes[1:] {
		left = math.Min(left, n.Bounds.X)
		top = math.Min(top, n.Bounds.Y)
		right = math.Max(right, n.Bounds.X+n.Bounds.Width)
		bottom = math.Max(bottom, n.Bounds.Y+n.Bounds.Height)
	}
	return schemas.NodeBounds{X: left, Y: top, Width: right - left, Height: bottom - top}
}
