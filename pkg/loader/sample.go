package loader

import "github.com/vanderheijden86/casepick/pkg/model"

// SampleSets returns the built-in demo case sets. Each call returns fresh
// copies, so callers may mutate them freely.
func SampleSets() []model.CaseSet {
	return []model.CaseSet{
		sampleUserManagement(),
		sampleGeneratedBatch(),
		sampleRegressionSmoke(),
	}
}

func tc(id, title string, prio model.Priority, typ model.CaseType, selected bool, steps ...string) model.TestCase {
	return model.TestCase{
		ID:       id,
		Title:    title,
		Priority: prio,
		Type:     typ,
		Status:   model.StatusPending,
		Steps:    steps,
		Selected: selected,
	}
}

func sampleUserManagement() model.CaseSet {
	register := []model.TestCase{
		tc("case-1", "使用有效手机号正常注册", model.PriorityP0, model.TypeFunctional, true,
			"打开注册页", "输入未注册的手机号和验证码", "设置符合规则的密码并提交"),
		tc("case-2", "手机号已注册时提示冲突", model.PriorityP1, model.TypeException, true,
			"输入已注册手机号", "提交注册"),
		tc("case-3", "密码强度不足时拒绝注册", model.PriorityP1, model.TypeBoundary, true,
			"输入 5 位纯数字密码", "提交注册"),
	}
	register[0].Expected = "注册成功并自动登录，跳转到首页"
	register[1].Expected = "提示“该手机号已注册”，停留在注册页"
	register[2].Expected = "提示密码至少 8 位且包含字母和数字"

	login := []model.TestCase{
		tc("case-4", "正确账号密码登录", model.PriorityP0, model.TypeFunctional, true,
			"输入正确账号密码", "点击登录"),
		tc("case-5", "连续 5 次密码错误锁定账号", model.PriorityP1, model.TypeSecurity, true,
			"连续 5 次输入错误密码", "第 6 次输入正确密码"),
	}
	login[0].Expected = "登录成功，显示用户昵称"
	login[1].Expected = "账号锁定 30 分钟，提示剩余解锁时间"

	return model.CaseSet{
		ID:          "user-management",
		Title:       "用户管理 需求评审",
		Description: "由《用户中心 PRD v2.3》生成的测试用例，确认后进入用例库。",
		Layout:      model.LayoutDimension,
		Dimensions: []model.Dimension{
			{
				ID:   "dim-user",
				Name: "用户管理",
				Points: []model.TestPoint{
					{ID: "pt-register", Name: "用户注册", Cases: register},
					{ID: "pt-login", Name: "用户登录", Cases: login},
				},
			},
			{
				ID:   "dim-order",
				Name: "订单管理",
				Points: []model.TestPoint{
					{ID: "pt-place", Name: "创建订单", Cases: []model.TestCase{
						tc("case-6", "库存充足时下单成功", model.PriorityP0, model.TypeFunctional, true),
						tc("case-7", "库存为 0 时禁止下单", model.PriorityP1, model.TypeBoundary, false),
					}},
					{ID: "pt-pay", Name: "订单支付", Cases: []model.TestCase{
						tc("case-8", "微信支付成功回调", model.PriorityP0, model.TypeFunctional, false),
						tc("case-9", "支付超时自动取消订单", model.PriorityP1, model.TypeException, false),
						tc("case-10", "高并发支付下单性能", model.PriorityP2, model.TypePerformance, false),
					}},
					{ID: "pt-refund", Name: "退款（待补充）"},
				},
			},
		},
	}
}

func sampleGeneratedBatch() model.CaseSet {
	return model.CaseSet{
		ID:          "ai-batch-0427",
		Title:       "AI 生成用例 批次 0427",
		Description: "知识库文档《支付网关接入指南》自动生成，待人工确认。",
		Layout:      model.LayoutGroup,
		Groups: []model.CaseGroup{
			{ID: "grp-functional", Name: "功能测试", Cases: []model.TestCase{
				tc("gen-1", "签名校验通过后受理请求", model.PriorityP0, model.TypeFunctional, true),
				tc("gen-2", "查询接口返回最新订单状态", model.PriorityP1, model.TypeFunctional, true),
			}},
			{ID: "grp-boundary", Name: "边界测试", Cases: []model.TestCase{
				tc("gen-3", "金额为 0.01 元时正常受理", model.PriorityP1, model.TypeBoundary, false),
				tc("gen-4", "金额超过单笔限额时拒绝", model.PriorityP1, model.TypeBoundary, false),
			}},
			{ID: "grp-exception", Name: "异常测试", Cases: []model.TestCase{
				tc("gen-5", "签名错误时返回 401", model.PriorityP0, model.TypeSecurity, true),
				tc("gen-6", "重复通知幂等处理", model.PriorityP1, model.TypeException, false),
			}},
		},
	}
}

func sampleRegressionSmoke() model.CaseSet {
	return model.CaseSet{
		ID:     "regression-smoke",
		Title:  "Regression smoke",
		Layout: model.LayoutGroup,
		Groups: []model.CaseGroup{
			{ID: "smoke-web", Name: "Web", Cases: []model.TestCase{
				tc("smoke-1", "Home page renders", model.PriorityP0, model.TypeFunctional, true),
				tc("smoke-2", "Search returns results", model.PriorityP0, model.TypeFunctional, true),
				tc("smoke-3", "Checkout completes", model.PriorityP0, model.TypeFunctional, true),
			}},
			{ID: "smoke-api", Name: "API", Cases: []model.TestCase{
				tc("smoke-4", "Health endpoint returns 200", model.PriorityP1, model.TypeFunctional, true),
				tc("smoke-5", "Auth token refresh", model.PriorityP1, model.TypeSecurity, false),
			}},
			{ID: "smoke-mobile", Name: "Mobile", Cases: []model.TestCase{
				tc("smoke-6", "App cold start under 2s", model.PriorityP2, model.TypePerformance, false),
				tc("smoke-7", "Push notification opens detail", model.PriorityP2, model.TypeCompatibility, false),
			}},
		},
	}
}
