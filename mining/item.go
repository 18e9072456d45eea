package mining

import "sort"

// Item 是会话内驻留（interned）的商品标识。
// 同一次挖掘中 Item 与商品名称一一对应，可以直接按值比较 / 排序。
type Item int32

// Interner 维护 商品名称 ↔ Item 的双向映射，生命周期限定在一次挖掘内。
// 构建完成后只读，可被并发读取。
type Interner struct {
	names []string
	ids   map[string]Item
}

// NewInterner 创建空的 Interner。
func NewInterner() *Interner {
	return &Interner{ids: make(map[string]Item)}
}

// Intern 返回 name 对应的 Item；首次出现时分配下一个标识。
func (in *Interner) Intern(name string) Item {
	if id, ok := in.ids[name]; ok {
		return id
	}
	id := Item(len(in.names))
	in.names = append(in.names, name)
	in.ids[name] = id
	return id
}

// Lookup 查找已驻留的商品；未知名称返回 false。
func (in *Interner) Lookup(name string) (Item, bool) {
	id, ok := in.ids[name]
	return id, ok
}

// Name 返回 Item 对应的商品名称。
func (in *Interner) Name(id Item) string {
	if id < 0 || int(id) >= len(in.names) {
		return ""
	}
	return in.names[id]
}

// Names 把一组 Item 转为名称。
func (in *Interner) Names(items []Item) []string {
	out := make([]string, len(items))
	for i, id := range items {
		out[i] = in.Name(id)
	}
	return out
}

// Resolve 把名称列表转为去重后的 Item 列表（按标识排序），未知名称被忽略。
func (in *Interner) Resolve(names []string) []Item {
	seen := make(map[Item]struct{}, len(names))
	out := make([]Item, 0, len(names))
	for _, n := range names {
		id, ok := in.ids[n]
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	SortItems(out)
	return out
}

// Len 返回已驻留的商品数。
func (in *Interner) Len() int { return len(in.names) }

// SortItems 按标识升序原地排序。
func SortItems(items []Item) {
	sort.Slice(items, func(i, j int) bool { return items[i] < items[j] })
}
