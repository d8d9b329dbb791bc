package tracks

import "slices"

// Track 源视频中的一路音频流。列表第一项是默认音轨，由 video 元素原生播放
type Track struct {
	Index       int     `json:"index"`
	Source      string  `json:"source"`
	Active      bool    `json:"active"`
	GainPercent float64 `json:"gain"`
}

// Split 拆出默认音轨和辅助音轨
func Split(list []Track) (*Track, []Track) {
	if len(list) == 0 {
		return nil, nil
	}
	def := list[0]
	return &def, slices.Clone(list[1:])
}

// Loadable 已经有源地址、可以开始加载的辅助音轨
func Loadable(aux []Track) []Track {
	out := make([]Track, 0, len(aux))
	for _, t := range aux {
		if t.Source != "" {
			out = append(out, t)
		}
	}
	return out
}

// Sources 按顺序列出源地址；源地址集合变化意味着新的加载会话
func Sources(aux []Track) []string {
	out := make([]string, 0, len(aux))
	for _, t := range Loadable(aux) {
		out = append(out, t.Source)
	}
	return out
}
