// Package problems supplies the problem assigned to each round together
// with the test cases the executor checks submissions against.
package problems

import (
	"errors"
	"fmt"

	"github.com/gosimple/slug"

	"github.com/okian/duel/internal/domain/model"
)

// Sentinel kinds for problem lookups.
var (
	ErrInvalidRound = errors.New("invalid round")
	ErrEmptyCatalog = errors.New("problem catalog is empty")
)

// Compare selects how a returned value is checked against the expectation.
type Compare string

// Comparison modes.
const (
	CompareExact     Compare = "exact"
	CompareUnordered Compare = "unordered" // sequences equal after sorting
)

// Case is one call of the player's function.
type Case struct {
	Args     []any
	Expected any
}

// Definition is a problem plus everything needed to grade it.
type Definition struct {
	Problem model.Problem
	Func    string
	Compare Compare
	Cases   []Case
	// Reference is a known-good solution, used by smoke tests and the
	// match simulator.
	Reference string
}

// Source supplies the problem for a 1-based round index.
type Source interface {
	ForRound(round int) (model.Problem, error)
}

// Catalog is a fixed, ordered set of definitions cycled by round.
type Catalog struct {
	defs   []Definition
	bySlug map[string]Definition
}

// Option applies a configuration option to the Catalog.
type Option func(*Catalog)

// WithDefinitions replaces the built-in problem set.
func WithDefinitions(defs ...Definition) Option {
	return func(c *Catalog) {
		c.defs = defs
	}
}

// NewCatalog builds a catalog, deriving a slug from the title when unset.
func NewCatalog(opts ...Option) *Catalog {
	c := &Catalog{defs: builtin()}
	for _, opt := range opts {
		opt(c)
	}
	c.bySlug = make(map[string]Definition, len(c.defs))
	for i := range c.defs {
		if c.defs[i].Problem.Slug == "" {
			c.defs[i].Problem.Slug = slug.Make(c.defs[i].Problem.Title)
		}
		if c.defs[i].Compare == "" {
			c.defs[i].Compare = CompareExact
		}
		c.bySlug[c.defs[i].Problem.Slug] = c.defs[i]
	}
	return c
}

// ForRound returns the problem for round, wrapping around the catalog
// when a match has more rounds than problems.
func (c *Catalog) ForRound(round int) (model.Problem, error) {
	if round < 1 {
		return model.Problem{}, fmt.Errorf("round %d: %w", round, ErrInvalidRound)
	}
	if len(c.defs) == 0 {
		return model.Problem{}, ErrEmptyCatalog
	}
	return c.defs[(round-1)%len(c.defs)].Problem, nil
}

// Lookup finds a definition by slug.
func (c *Catalog) Lookup(slug string) (Definition, bool) {
	d, ok := c.bySlug[slug]
	return d, ok
}

// Len returns the number of distinct problems.
func (c *Catalog) Len() int {
	return len(c.defs)
}

func builtin() []Definition {
	return []Definition{
		{
			Problem: model.Problem{
				Title:     "Two Sum",
				Statement: "Return indices of two numbers such that they add to target.",
				Signature: "def two_sum(nums, target) -> list[int]:",
				Starter:   "def two_sum(nums, target):\n    # return [i, j]\n    pass\n",
			},
			Func:      "two_sum",
			Compare:   CompareUnordered,
			Reference: "def two_sum(nums, target):\n    seen = {}\n    for i, n in enumerate(nums):\n        if target - n in seen:\n            return [seen[target - n], i]\n        seen[n] = i\n    return []\n",
			Cases: []Case{
				{Args: []any{[]int{2, 7, 11, 15}, 9}, Expected: []int{0, 1}},
				{Args: []any{[]int{3, 2, 4}, 6}, Expected: []int{1, 2}},
				{Args: []any{[]int{3, 3}, 6}, Expected: []int{0, 1}},
			},
		},
		{
			Problem: model.Problem{
				Title:     "Binary Search",
				Statement: "Return index of target in sorted nums, or -1 if not found.",
				Signature: "def binary_search(nums, target) -> int:",
				Starter:   "def binary_search(nums, target):\n    # return index or -1\n    pass\n",
			},
			Func:      "binary_search",
			Reference: "def binary_search(nums, target):\n    lo, hi = 0, len(nums) - 1\n    while lo <= hi:\n        mid = (lo + hi) // 2\n        if nums[mid] == target:\n            return mid\n        if nums[mid] < target:\n            lo = mid + 1\n        else:\n            hi = mid - 1\n    return -1\n",
			Cases: []Case{
				{Args: []any{[]int{-1, 0, 3, 5, 9, 12}, 9}, Expected: 4},
				{Args: []any{[]int{-1, 0, 3, 5, 9, 12}, 2}, Expected: -1},
				{Args: []any{[]int{1}, 1}, Expected: 0},
			},
		},
		{
			Problem: model.Problem{
				Title:     "Trapping Rain Water",
				Statement: "Given elevation map, compute total trapped water.",
				Signature: "def trap(height) -> int:",
				Starter:   "def trap(height):\n    # return int\n    pass\n",
			},
			Func:      "trap",
			Reference: "def trap(height):\n    l, r = 0, len(height) - 1\n    lmax = rmax = total = 0\n    while l < r:\n        if height[l] < height[r]:\n            lmax = max(lmax, height[l])\n            total += lmax - height[l]\n            l += 1\n        else:\n            rmax = max(rmax, height[r])\n            total += rmax - height[r]\n            r -= 1\n    return total\n",
			Cases: []Case{
				{Args: []any{[]int{0, 1, 0, 2, 1, 0, 1, 3, 2, 1, 2, 1}}, Expected: 6},
				{Args: []any{[]int{4, 2, 0, 3, 2, 5}}, Expected: 9},
				{Args: []any{[]int{1, 2, 3}}, Expected: 0},
			},
		},
		{
			Problem: model.Problem{
				Title:     "Valid Palindrome",
				Statement: "Check if string is a palindrome (alphanumeric, case-insensitive).",
				Signature: "def is_palindrome(s) -> bool:",
				Starter:   "def is_palindrome(s):\n    # return True/False\n    pass\n",
			},
			Func:      "is_palindrome",
			Reference: "def is_palindrome(s):\n    t = [c.lower() for c in s if c.isalnum()]\n    return t == t[::-1]\n",
			Cases: []Case{
				{Args: []any{"A man, a plan, a canal: Panama"}, Expected: true},
				{Args: []any{"race a car"}, Expected: false},
				{Args: []any{""}, Expected: true},
			},
		},
		{
			Problem: model.Problem{
				Title:     "Valid Parentheses",
				Statement: "Check if brackets ()[]{} are balanced.",
				Signature: "def is_valid(s) -> bool:",
				Starter:   "def is_valid(s):\n    # return True/False\n    pass\n",
			},
			Func:      "is_valid",
			Reference: "def is_valid(s):\n    pairs = {\")\": \"(\", \"]\": \"[\", \"}\": \"{\"}\n    stack = []\n    for c in s:\n        if c in pairs:\n            if not stack or stack.pop() != pairs[c]:\n                return False\n        else:\n            stack.append(c)\n    return not stack\n",
			Cases: []Case{
				{Args: []any{"()"}, Expected: true},
				{Args: []any{"()[]{}"}, Expected: true},
				{Args: []any{"(]"}, Expected: false},
				{Args: []any{"([)]"}, Expected: false},
				{Args: []any{"{[]}"}, Expected: true},
			},
		},
	}
}
