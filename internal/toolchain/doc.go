// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 toolchain 提供编译/执行协作者的边界：把产物写入工程源码目录，
调用外部构建工具编译并运行测试。

# 核心类型

  - Toolchain：Compile / Run 接口。编译或测试失败以 Result.OK=false 表示；
    返回 error 仅代表无法执行。
  - Maven：默认实现，源码写入 <work_dir>/<source_root>/<包路径>/<类名>.java，
    编译命令默认 mvn -q test-compile，执行命令中的 {test} 替换为全限定类名，
    并导出 WEBURL、USERNAME、PASSWORD 环境变量。
  - Disabled：未启用时的占位实现，返回 SERVICE_UNAVAILABLE。

超时由调用方的 context 控制；超时不返回 error，而是 Result.TimedOut=true。
*/
package toolchain
