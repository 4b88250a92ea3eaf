// =============================================================================
// 📦 测试数据工厂 - Java 源码与编译输出
// =============================================================================
// 提供预定义的模型回复、可编译/不可编译源码与编译诊断，用于测试
// =============================================================================
package fixtures

import "fmt"

// =============================================================================
// 🎯 模型回复
// =============================================================================

// ValidTestClass 返回一个可编译的 Playwright/TestNG 测试类（无 package 行）
func ValidTestClass(class string) string {
	return fmt.Sprintf(`import com.microsoft.playwright.*;
import org.testng.annotations.Test;

public class %s {
    @Test
    public void login() {
        try (Playwright playwright = Playwright.create()) {
            Browser browser = playwright.chromium().launch(new BrowserType.LaunchOptions().setHeadless(true));
            Page page = browser.newPage();
            page.navigate(System.getenv("WEBURL"));
        }
    }
}`, class)
}

// FencedReply 返回包裹在 markdown 代码块与说明文字中的回复
func FencedReply(code string) string {
	return "Here is the generated test:\n\n```java\n" + code + "\n```\n\nLet me know if you need changes."
}

// WrongPackageReply 返回声明了错误包名与类名的回复
func WrongPackageReply() string {
	return "package com.wrong.place;\n\n" + ValidTestClass("SomethingElse")
}

// BrokenTestClass 返回缺少分号与导入的不可编译源码
func BrokenTestClass(class string) string {
	return fmt.Sprintf(`public class %s {
    @Test
    public void login() {
        Page page = null
    }
}`, class)
}

// =============================================================================
// 🧾 编译输出
// =============================================================================

// CompilerErrors 返回典型的 Maven 编译失败输出
func CompilerErrors(class string) string {
	return fmt.Sprintf(`[ERROR] COMPILATION ERROR :
[ERROR] /src/test/java/com/acme/%[1]s.java:[4,26] ';' expected
[ERROR] /src/test/java/com/acme/%[1]s.java:[2,6] cannot find symbol
  symbol:   class Test
[INFO] BUILD FAILURE`, class)
}
