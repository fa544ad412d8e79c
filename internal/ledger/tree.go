package ledger

import "sort"

// Tree is the chart of accounts as an arena: nodes indexed by id, each with
// an explicit, sorted list of child ids. Upstream data arrives either flat
// (parent references) or pre-nested (embedded children); BuildTree picks the
// adapter by inspecting the input so consumers only ever see this shape.
type Tree struct {
	nodes map[string]*treeNode
	roots []string
}

type treeNode struct {
	account  Account
	children []string
}

// BuildTree treats the input as pre-nested when no account carries a parent
// reference and at least one embeds children; otherwise it links accounts
// by parent id, and accounts whose parent is missing become roots.
func BuildTree(accounts []Account) *Tree {
	t := &Tree{nodes: make(map[string]*treeNode, len(accounts))}
	if isPreNested(accounts) {
		t.fromNested(accounts, "")
	} else {
		t.fromFlat(accounts)
	}
	t.breakCycles()
	t.sortLevels()
	return t
}

func isPreNested(accounts []Account) bool {
	nested := false
	for i := range accounts {
		if accounts[i].ParentID != "" {
			return false
		}
		if len(accounts[i].Children) > 0 {
			nested = true
		}
	}
	return nested
}

// add stores a copy of a without its embedded children. Duplicate ids keep
// the first occurrence.
func (t *Tree) add(a Account) bool {
	if _, dup := t.nodes[a.ID]; dup {
		return false
	}
	a.Children = nil
	t.nodes[a.ID] = &treeNode{account: a}
	return true
}

func (t *Tree) fromNested(list []Account, parentID string) {
	for _, a := range list {
		children := a.Children
		a.ParentID = parentID
		if !t.add(a) {
			continue
		}
		if parentID == "" {
			t.roots = append(t.roots, a.ID)
		} else {
			p := t.nodes[parentID]
			p.children = append(p.children, a.ID)
		}
		t.fromNested(children, a.ID)
	}
}

func (t *Tree) fromFlat(accounts []Account) {
	var order []string
	for _, a := range accounts {
		if t.add(a) {
			order = append(order, a.ID)
		}
	}
	for _, id := range order {
		n := t.nodes[id]
		pid := n.account.ParentID
		parent, ok := t.nodes[pid]
		if pid == "" || pid == id || !ok {
			n.account.ParentID = ""
			t.roots = append(t.roots, id)
			continue
		}
		parent.children = append(parent.children, id)
	}
}

// breakCycles promotes nodes trapped in a parent cycle to roots so every
// account appears exactly once and the result is a forest.
func (t *Tree) breakCycles() {
	reached := make(map[string]bool, len(t.nodes))
	var mark func(id string)
	mark = func(id string) {
		if reached[id] {
			return
		}
		reached[id] = true
		for _, c := range t.nodes[id].children {
			mark(c)
		}
	}
	for _, id := range t.roots {
		mark(id)
	}
	if len(reached) == len(t.nodes) {
		return
	}

	var stranded []Account
	for id, n := range t.nodes {
		if !reached[id] {
			stranded = append(stranded, n.account)
		}
	}
	SortAccounts(stranded)
	for _, a := range stranded {
		if reached[a.ID] {
			continue
		}
		n := t.nodes[a.ID]
		if p, ok := t.nodes[n.account.ParentID]; ok {
			p.children = removeID(p.children, a.ID)
		}
		n.account.ParentID = ""
		t.roots = append(t.roots, a.ID)
		mark(a.ID)
	}
}

func (t *Tree) sortLevels() {
	s := newAccountSorter()
	byOrder := func(ids []string) {
		sort.SliceStable(ids, func(i, j int) bool {
			return s.less(&t.nodes[ids[i]].account, &t.nodes[ids[j]].account)
		})
	}
	byOrder(t.roots)
	for _, n := range t.nodes {
		byOrder(n.children)
	}
}

// Len returns the number of accounts in the tree.
func (t *Tree) Len() int { return len(t.nodes) }

// Roots materialises the forest with Children populated at every level.
func (t *Tree) Roots() []Account {
	out := make([]Account, 0, len(t.roots))
	for _, id := range t.roots {
		out = append(out, t.materialise(id))
	}
	return out
}

func (t *Tree) materialise(id string) Account {
	n := t.nodes[id]
	a := n.account
	a.Children = nil
	for _, c := range n.children {
		a.Children = append(a.Children, t.materialise(c))
	}
	return a
}

// Walk visits accounts depth-first in display order.
func (t *Tree) Walk(fn func(a Account, depth int)) {
	var visit func(id string, depth int)
	visit = func(id string, depth int) {
		n := t.nodes[id]
		fn(n.account, depth)
		for _, c := range n.children {
			visit(c, depth+1)
		}
	}
	for _, id := range t.roots {
		visit(id, 0)
	}
}

// CreatesCycle reports whether making parentID the parent of id would close
// a loop. parents maps account id to its current parent id.
func CreatesCycle(parents map[string]string, id, parentID string) bool {
	seen := make(map[string]bool)
	for cur := parentID; cur != ""; cur = parents[cur] {
		if cur == id {
			return true
		}
		if seen[cur] {
			return false
		}
		seen[cur] = true
	}
	return false
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, x := range ids {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}
