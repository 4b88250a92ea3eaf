// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 store 提供上下文存储：关联键到只追加历史记录的持久映射。

# 核心类型

  - Store：追加/查询/列表入口。同一键的追加经 KeyLock 串行化，
    序号严格递增，时间戳单调不减；不同键之间互不阻塞。
  - Backend：持久化后端接口（Insert / Find / Last / Keys / Ping / Close）。
  - MemoryBackend、RedisBackend、MongoBackend、SQLBackend：具体后端实现。

# 后端选择

OpenBackend 根据 context_store.driver 选择后端（memory、redis、mongo、
postgres、mysql、sqlite）。持久化后端连接失败时按指数退避重试，
若开启 fallback_to_memory 则回退到内存后端，服务继续可用。
*/
package store
