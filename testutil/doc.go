// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package testutil 提供 testsmith 测试的共享工具和辅助函数。

# 概述

testutil 包为生成、修复、编排与网关的单元测试提供统一的辅助能力，
避免各包重复实现相似的测试基础设施。

# 核心能力

  - 上下文辅助: TestContext，自动注册 Cleanup 防止泄漏
  - 断言工具: AssertErrorCode
  - 等待工具: WaitFor
  - 数据工具: MustJSON

# 子包

  - testutil/mocks: Mock 实现，包括 MockLLM（按序脚本化的 LLM 客户端）、
    MockToolchain（编译/执行结果脚本）、MockBackend（可注入错误的存储后端），
    均支持 Builder 模式与调用记录
  - testutil/fixtures: 测试数据工厂，提供可编译/不可编译的 Java 源码、
    带代码块的模型回复与 Maven 编译诊断样例

# 使用示例

	ctx := testutil.TestContext(t)
	client := mocks.NewScriptedLLM(fixtures.ValidTestClass("LoginTest"))
	out, err := client.Complete(ctx, prompt, 0.2, 1024)
	require.NoError(t, err)
*/
package testutil
