package pathfilter

// automaton is a byte-level Aho-Corasick trie.
type automaton struct {
	nodes []acNode
	words []string
}

type acNode struct {
	next map[byte]int
	fail int
	// out is the index of the shortest word ending here, via fail links; -1 if none.
	out int
}

func build(words []string) *automaton {
	a := &automaton{
		nodes: []acNode{{next: map[byte]int{}, out: -1}},
		words: words,
	}

	for i, w := range words {
		cur := 0
		for j := 0; j < len(w); j++ {
			nxt, ok := a.nodes[cur].next[w[j]]
			if !ok {
				a.nodes = append(a.nodes, acNode{next: map[byte]int{}, out: -1})
				nxt = len(a.nodes) - 1
				a.nodes[cur].next[w[j]] = nxt
			}
			cur = nxt
		}
		if a.nodes[cur].out == -1 {
			a.nodes[cur].out = i
		}
	}

	// breadth-first fail links
	queue := make([]int, 0, len(a.nodes))
	for _, child := range a.nodes[0].next {
		queue = append(queue, child)
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for b, child := range a.nodes[cur].next {
			f := a.nodes[cur].fail
			for f != 0 {
				if _, ok := a.nodes[f].next[b]; ok {
					break
				}
				f = a.nodes[f].fail
			}
			if target, ok := a.nodes[f].next[b]; ok && target != child {
				a.nodes[child].fail = target
			}
			if a.nodes[child].out == -1 {
				a.nodes[child].out = a.nodes[a.nodes[child].fail].out
			}
			queue = append(queue, child)
		}
	}

	return a
}

// find returns the first word that occurs in s.
func (a *automaton) find(s string) (string, bool) {
	cur := 0
	for i := 0; i < len(s); i++ {
		for {
			if nxt, ok := a.nodes[cur].next[s[i]]; ok {
				cur = nxt
				break
			}
			if cur == 0 {
				break
			}
			cur = a.nodes[cur].fail
		}
		if out := a.nodes[cur].out; out != -1 {
			return a.words[out], true
		}
	}
	return "", false
}
