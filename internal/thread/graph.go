package thread

// Graph groups message ids into conversation threads. A thread is keyed by
// the earliest-known message id of the conversation and holds the set of ids
// known to belong to it. Graphs are rebuilt from scratch for every extraction
// run and never persisted.
type Graph struct {
	members   map[string]map[string]struct{}
	byMessage map[string]string
}

func NewGraph() *Graph {
	return &Graph{
		members:   make(map[string]map[string]struct{}),
		byMessage: make(map[string]string),
	}
}

// RefList builds the reference chain used for thread resolution: the
// References ids in header order, with In-Reply-To appended when it is not
// already present.
func RefList(references []string, inReplyTo string) []string {
	refs := make([]string, 0, len(references)+1)
	refs = append(refs, references...)
	if inReplyTo != "" {
		seen := false
		for _, r := range refs {
			if r == inReplyTo {
				seen = true
				break
			}
		}
		if !seen {
			refs = append(refs, inReplyTo)
		}
	}
	return refs
}

// Add registers a message in the graph. Messages without an id cannot be
// threaded and are ignored.
//
// When several entries of refs resolve to different existing threads (a
// truncated reference chain can produce this), the first match in iteration
// order wins and the threads are NOT merged. Two halves of one real
// conversation can therefore stay apart; that approximation is intentional
// and matched by the response classifier's fallback rules.
func (g *Graph) Add(id string, refs []string) {
	if id == "" {
		return
	}

	if len(refs) == 0 {
		if _, known := g.byMessage[id]; !known {
			g.members[id] = map[string]struct{}{id: {}}
			g.byMessage[id] = id
		}
		return
	}

	for _, ref := range refs {
		if threadID, ok := g.byMessage[ref]; ok {
			g.members[threadID][id] = struct{}{}
			g.byMessage[id] = threadID
			return
		}
	}

	// No reference is known yet: mint a thread under this message's own id
	// and claim the whole chain for it.
	set := make(map[string]struct{}, len(refs)+1)
	set[id] = struct{}{}
	g.byMessage[id] = id
	for _, ref := range refs {
		set[ref] = struct{}{}
		g.byMessage[ref] = id
	}
	g.members[id] = set
}

// ThreadOf returns the thread a message id belongs to.
func (g *Graph) ThreadOf(id string) (string, bool) {
	threadID, ok := g.byMessage[id]
	return threadID, ok
}

// Size returns the number of known members of a thread.
func (g *Graph) Size(threadID string) int {
	return len(g.members[threadID])
}

// Threads returns the number of distinct threads.
func (g *Graph) Threads() int {
	return len(g.members)
}
