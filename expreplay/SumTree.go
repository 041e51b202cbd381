package expreplay

// sumTree implements a complete binary tree over leaf priorities in
// which every internal node holds the sum of its children. Prefix-sum
// queries and priority updates are both O(log capacity).
type sumTree struct {
	capacity int
	nodes    []float64 // Leaf i lives at nodes[capacity-1+i]
}

// newSumTree returns a sum tree with the given number of leaves, all
// with priority 0
func newSumTree(capacity int) *sumTree {
	return &sumTree{
		capacity: capacity,
		nodes:    make([]float64, 2*capacity-1),
	}
}

// total returns the sum of all leaf priorities
func (s *sumTree) total() float64 {
	return s.nodes[0]
}

// set sets leaf i to the given priority, updating ancestor sums
func (s *sumTree) set(i int, priority float64) {
	node := s.capacity - 1 + i
	delta := priority - s.nodes[node]
	s.nodes[node] = priority

	for node > 0 {
		node = (node - 1) / 2
		s.nodes[node] += delta
	}
}

// get returns the priority of leaf i
func (s *sumTree) get(i int) float64 {
	return s.nodes[s.capacity-1+i]
}

// find returns the index of the leaf at the given prefix sum: the
// first leaf whose cumulative priority exceeds prefix
func (s *sumTree) find(prefix float64) int {
	node := 0
	for node < s.capacity-1 {
		left := 2*node + 1
		if prefix < s.nodes[left] {
			node = left
		} else {
			prefix -= s.nodes[left]
			node = left + 1
		}
	}
	return node - (s.capacity - 1)
}
