package storage

import "sort"

// LinkSet 已处理过的文章链接集合，只增不减
type LinkSet map[string]struct{}

func NewLinkSet(links ...string) LinkSet {
	s := make(LinkSet, len(links))
	for _, l := range links {
		if l != "" {
			s[l] = struct{}{}
		}
	}
	return s
}

func (s LinkSet) Has(link string) bool {
	_, ok := s[link]
	return ok
}

// Add 返回 link 是否为新加入
func (s LinkSet) Add(link string) bool {
	if link == "" || s.Has(link) {
		return false
	}
	s[link] = struct{}{}
	return true
}

func (s LinkSet) Len() int {
	return len(s)
}

func (s LinkSet) Clone() LinkSet {
	out := make(LinkSet, len(s))
	for l := range s {
		out[l] = struct{}{}
	}
	return out
}

// Merge 把 other 并入 s，返回新增数量
func (s LinkSet) Merge(other LinkSet) int {
	n := 0
	for l := range other {
		if s.Add(l) {
			n++
		}
	}
	return n
}

// Sorted 按字典序输出，空集合返回空切片而不是 nil
func (s LinkSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for l := range s {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}
