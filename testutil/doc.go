// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package testutil 提供 genbridge 测试的共享工具和辅助函数。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout / CancelledContext，
    自动注册 Cleanup 防止泄漏
  - 断言工具: AssertPartsEqual / AssertDirEmpty / AssertEventuallyTrue
  - 数据工具: MustJSON / MustParseJSON / WriteTempFile
  - 请求构造: MultipartBody / FilePart / FieldPart，
    可为文件字段显式指定 Content-Type

# 子包

  - testutil/mocks: MockProvider（llm.Provider）与 MockInferer，
    均支持 Builder 模式与错误注入
  - testutil/fixtures: JPEG / PNG / PDF / WAV 等样例文件内容

# 使用示例

	ctx := testutil.TestContext(t)
	provider := mocks.NewMockProvider().WithResponse("hello")
	out, err := provider.Generate(ctx, []llm.Part{llm.Text("hi")})
	require.NoError(t, err)
*/
package testutil
