package core

// Tree is the contact graph explored by one route search: a rooted tree
// held in a flat arena and dropped when the search returns. Branch
// identities are node indices; RxTimeS is the offset at which the identity
// has received the packet along the path from the root.
type Tree struct {
	branches []TreeBranch
	height   uint16
	target   uint16
}

// TreeBranch is one arena entry. Parent is -1 at the root.
type TreeBranch struct {
	Parent   int32
	Children []int32
	Level    uint16
	Identity uint16
	RxTimeS  uint64
}

// NewTree roots a tree at rootIdentity with the given height limit and the
// declared search target.
func NewTree(rootIdentity uint16, height uint16, target uint16) *Tree {
	return &Tree{
		branches: []TreeBranch{{Parent: -1, Identity: rootIdentity}},
		height:   height,
		target:   target,
	}
}

// Height returns the current height limit.
func (t *Tree) Height() uint16 { return t.height }

// SetHeight shrinks (or raises) the height limit for subsequent AddChild
// calls.
func (t *Tree) SetHeight(height uint16) { t.height = height }

// Size returns the number of branches.
func (t *Tree) Size() int { return len(t.branches) }

// Branch returns the arena entry at index.
func (t *Tree) Branch(index int32) *TreeBranch { return &t.branches[index] }

// AddChild inserts a child under parent. It refuses a duplicate identity
// among the parent's children and refuses to exceed the height limit —
// except for the declared target, which is always accepted; that is how a
// faster route to the destination can coexist with an earlier slower one.
// Returns the child's arena index, or false if refused.
func (t *Tree) AddChild(parent int32, identity uint16, rxTimeS uint64) (int32, bool) {
	hasChild := false
	for _, child := range t.branches[parent].Children {
		if t.branches[child].Identity == identity {
			hasChild = true
			break
		}
	}
	tooTall := t.branches[parent].Level >= t.height
	if (hasChild || tooTall) && identity != t.target {
		return 0, false
	}
	child := int32(len(t.branches))
	t.branches = append(t.branches, TreeBranch{
		Parent:   parent,
		Level:    t.branches[parent].Level + 1,
		Identity: identity,
		RxTimeS:  rxTimeS,
	})
	// Children are prepended so later discoveries are visited first.
	t.branches[parent].Children = append([]int32{child}, t.branches[parent].Children...)
	return child, true
}

// SearchSpecific finds the unique branch with both the given identity and
// reception time, breadth first.
func (t *Tree) SearchSpecific(identity uint16, rxTimeS uint64) (int32, bool) {
	return t.bfs(func(b *TreeBranch) bool {
		return b.Identity == identity && b.RxTimeS == rxTimeS
	})
}

// BreadthFirstSearch finds the first branch with the given identity.
func (t *Tree) BreadthFirstSearch(identity uint16) (int32, bool) {
	return t.bfs(func(b *TreeBranch) bool {
		return b.Identity == identity
	})
}

func (t *Tree) bfs(match func(*TreeBranch) bool) (int32, bool) {
	queue := []int32{0}
	for len(queue) > 0 {
		index := queue[0]
		queue = queue[1:]
		if match(&t.branches[index]) {
			return index, true
		}
		queue = append(queue, t.branches[index].Children...)
	}
	return 0, false
}

// Ancestry returns the path from the root down to the given branch,
// inclusive.
func (t *Tree) Ancestry(index int32) []int32 {
	var path []int32
	for current := index; current >= 0; current = t.branches[current].Parent {
		path = append([]int32{current}, path...)
	}
	return path
}
