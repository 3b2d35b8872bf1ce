package ctxkeys

// TraceIDKey 上下文中运行追踪ID的键，值为场景运行ID
type TraceIDKey struct{}

// ScenarioKey 上下文中当前场景名称的键
type ScenarioKey struct{}
