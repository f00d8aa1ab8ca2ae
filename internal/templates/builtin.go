package templates

const (
	ComprehensiveID = 1
	IndustryID      = 2
)

// Builtin returns the two stock templates.
func Builtin() []Template {
	return []Template{
		{
			ID:   ComprehensiveID,
			Code: "comprehensive",
			Name: "综合五年规划模板",
			Sections: []Section{
				{
					Title:          "总则",
					Subsections:    []string{"指导思想", "基本原则", "发展目标"},
					AuthoringBrief: "阐述规划的指导思想、遵循的基本原则和要实现的总体发展目标",
					MinWords:       800,
				},
				{
					Title:          "发展基础与面临形势",
					Subsections:    []string{"发展基础", "机遇挑战", "发展环境"},
					AuthoringBrief: "分析当前发展基础、面临的机遇挑战以及发展环境",
					MinWords:       1200,
				},
				{
					Title:          "发展目标与指标体系",
					Subsections:    []string{"总体目标", "具体指标", "分年度目标"},
					AuthoringBrief: "设定明确的发展目标和可量化的指标体系",
					MinWords:       1000,
				},
				{
					Title:          "重点任务与举措",
					Subsections:    []string{"产业发展", "基础设施", "民生保障", "生态环境"},
					AuthoringBrief: "详细规划各领域的重点任务和具体举措",
					MinWords:       2000,
				},
				{
					Title:          "空间布局与重大项目",
					Subsections:    []string{"空间布局", "重大项目", "投资安排"},
					AuthoringBrief: "明确空间发展布局和重大项目安排",
					MinWords:       1000,
				},
				{
					Title:          "保障措施",
					Subsections:    []string{"组织保障", "政策保障", "资金保障", "监督评估"},
					AuthoringBrief: "制定具体的保障措施确保规划实施",
					MinWords:       800,
				},
			},
		},
		{
			ID:   IndustryID,
			Code: "industry",
			Name: "产业发展专项规划模板",
			Sections: []Section{
				{
					Title:          "产业发展现状",
					Subsections:    []string{"产业基础", "发展水平", "存在问题"},
					AuthoringBrief: "全面分析产业发展现状和存在的问题",
					MinWords:       1000,
				},
				{
					Title:          "发展环境分析",
					Subsections:    []string{"政策环境", "市场环境", "技术环境", "竞争环境"},
					AuthoringBrief: "深入分析产业发展的内外部环境",
					MinWords:       800,
				},
				{
					Title:          "发展目标与路径",
					Subsections:    []string{"发展目标", "发展路径", "发展重点"},
					AuthoringBrief: "明确产业发展的目标、路径和重点方向",
					MinWords:       1200,
				},
				{
					Title:          "重点任务",
					Subsections:    []string{"产业链完善", "创新能力提升", "平台建设", "人才培养"},
					AuthoringBrief: "制定产业发展的重点任务和具体措施",
					MinWords:       1500,
				},
				{
					Title:          "保障措施",
					Subsections:    []string{"政策支持", "资金保障", "组织实施"},
					AuthoringBrief: "确保产业规划顺利实施的保障措施",
					MinWords:       600,
				},
			},
		},
	}
}

// NewBuiltinRegistry returns a registry seeded with the stock templates.
func NewBuiltinRegistry() *Registry {
	r, err := NewRegistry(Builtin()...)
	if err != nil {
		panic("templates: invalid builtin catalog: " + err.Error())
	}
	return r
}
